package calculations

import (
	"testing"

	"github.com/cloud-ru/mcp-fintools-go/internal/calendar"
)

func TestPortfolioTimeline(t *testing.T) {
	histories := map[int]*NAVHistory{
		101: history(t, "01-01-2023", 10.0, "01-02-2023", 11.0, "01-03-2023", 12.0),
		202: history(t, "01-01-2023", 20.0, "01-02-2023", 20.0, "01-03-2023", 25.0),
	}
	lump := Holding{SchemeCode: 101, Declarations: []Declaration{
		Lumpsum{StartDate: date(t, "15-01-2023"), Amount: 1000},
	}}
	sip := Holding{SchemeCode: 202, Declarations: []Declaration{
		SIP{StartDate: date(t, "01-01-2023"), Amount: 1000, MonthlyDay: 1},
	}}
	asOf := date(t, "01-01-2024")

	tests := []struct {
		name     string
		holdings []Holding
		want     []PortfolioSnapshot
	}{
		{
			name:     "lumpsum is omitted until invested",
			holdings: []Holding{lump},
			want: []PortfolioSnapshot{
				{Date: date(t, "01-02-2023"), InvestedAmount: 1000, CurrentValue: 1100},
				{Date: date(t, "01-03-2023"), InvestedAmount: 1000, CurrentValue: 1200},
			},
		},
		{
			name:     "sip counts installments up to each snapshot",
			holdings: []Holding{sip},
			want: []PortfolioSnapshot{
				{Date: date(t, "01-01-2023"), InvestedAmount: 1000, CurrentValue: 1000},
				{Date: date(t, "01-02-2023"), InvestedAmount: 2000, CurrentValue: 2000},
				{Date: date(t, "01-03-2023"), InvestedAmount: 3000, CurrentValue: 3750},
			},
		},
		{
			name:     "holdings are summed",
			holdings: []Holding{lump, sip},
			want: []PortfolioSnapshot{
				{Date: date(t, "01-01-2023"), InvestedAmount: 1000, CurrentValue: 1000},
				{Date: date(t, "01-02-2023"), InvestedAmount: 3000, CurrentValue: 3100},
				{Date: date(t, "01-03-2023"), InvestedAmount: 4000, CurrentValue: 4950},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PortfolioTimeline(tt.holdings, histories, asOf)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d snapshots, want %d", len(got), len(tt.want))
			}
			for i, w := range tt.want {
				g := got[i]
				if !g.Date.Equal(w.Date) {
					t.Errorf("snapshot %d date = %v, want %v", i, g.Date, w.Date)
				}
				if !approx(g.InvestedAmount, w.InvestedAmount, 1e-6) || !approx(g.CurrentValue, w.CurrentValue, 1e-6) {
					t.Errorf("snapshot %d = %+v, want invested %v value %v", i, g, w.InvestedAmount, w.CurrentValue)
				}
				if !approx(g.Gain, g.CurrentValue-g.InvestedAmount, 1e-9) {
					t.Errorf("snapshot %d gain mismatch", i)
				}
			}
		})
	}

	if got := PortfolioTimeline(nil, histories, asOf); got != nil {
		t.Error("no holdings must give no timeline")
	}
}

func TestSnapshotDatesDownsampling(t *testing.T) {
	base := calendar.NewDate(2020, 1, 1)
	obs := make([]NAVObservation, 1200)
	for i := range obs {
		obs[i] = NAVObservation{Date: base.AddDate(0, 0, i), NAV: 10}
	}

	dates := SnapshotDates(map[int]*NAVHistory{1: NewNAVHistory(obs)})
	if len(dates) != 401 {
		t.Fatalf("expected 401 dates, got %d", len(dates))
	}
	if !dates[len(dates)-1].Equal(base.AddDate(0, 0, 1199)) {
		t.Error("last date must be kept")
	}
	if !dates[1].Equal(base.AddDate(0, 0, 3)) {
		t.Errorf("unexpected stride, second date %v", dates[1])
	}
}

func TestResampleAndStats(t *testing.T) {
	base := calendar.NewDate(2023, 1, 1)
	snapshots := make([]PortfolioSnapshot, 120)
	for i := range snapshots {
		gain := float64(i - 20)
		snapshots[i] = PortfolioSnapshot{
			Date:             base.AddDate(0, 0, i),
			InvestedAmount:   1000,
			CurrentValue:     1000 + gain,
			Gain:             gain,
			ReturnPercentage: gain / 10,
		}
	}

	if got := len(ResampleTimeline(snapshots, 50)); got != 41 {
		t.Errorf("ResampleTimeline() len = %d, want 41", got)
	}
	if got := len(ResampleTimeline(snapshots[:30], 0)); got != 30 {
		t.Errorf("short series must not be resampled, got %d", got)
	}

	stats := TimelineStats(snapshots)
	if stats.HighestGain != 99 || stats.LowestGain != -20 {
		t.Errorf("unexpected gain bounds %+v", stats)
	}
	if !approx(stats.AvgGain, 39.5, 1e-9) || !approx(stats.TotalReturn, 9.9, 1e-9) {
		t.Errorf("unexpected averages %+v", stats)
	}
	if !stats.StartDate.Equal(base) {
		t.Errorf("start date = %v", stats.StartDate)
	}

	if empty := TimelineStats(nil); empty.StartDate != nil {
		t.Error("empty series must give empty stats")
	}
}
