package calculations

import (
	"math"
	"testing"
	"time"

	"github.com/cloud-ru/mcp-fintools-go/internal/calendar"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := calendar.ParseDate(s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func datePtr(t *testing.T, s string) *time.Time {
	d := date(t, s)
	return &d
}

func history(t *testing.T, points ...interface{}) *NAVHistory {
	t.Helper()
	obs := make([]NAVObservation, 0, len(points)/2)
	for i := 0; i+1 < len(points); i += 2 {
		obs = append(obs, NAVObservation{Date: date(t, points[i].(string)), NAV: points[i+1].(float64)})
	}
	return NewNAVHistory(obs)
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

type capConfig float64

func (c capConfig) BalanceCap() float64 { return float64(c) }
