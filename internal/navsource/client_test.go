package navsource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type upstream struct {
	server *httptest.Server
	calls  atomic.Int32
	query  atomic.Value
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}
	mux := http.NewServeMux()
	mux.HandleFunc("/mf/100", func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		u.query.Store(r.URL.RawQuery)
		time.Sleep(20 * time.Millisecond)
		fmt.Fprint(w, `{"meta":{"scheme_code":100,"scheme_name":"Alpha Growth","fund_house":"Alpha AMC"},
			"data":[{"date":"03-01-2023","nav":"12.50"},{"date":"02-01-2023","nav":"12.25"},{"date":"01-01-2023","nav":"12.00"}],
			"status":"SUCCESS"}`)
	})
	mux.HandleFunc("/mf/100/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"meta":{"scheme_code":100,"scheme_name":"Alpha Growth","fund_house":"Alpha AMC","isin_growth":null},
			"data":[{"date":"03-01-2023","nav":"12.50"}],"status":"SUCCESS"}`)
	})
	mux.HandleFunc("/mf/200", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"meta":{},"data":[],"status":"SUCCESS"}`)
	})
	mux.HandleFunc("/mf/300", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	mux.HandleFunc("/mf/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"schemeCode":100,"schemeName":%q}]`, r.URL.Query().Get("q"))
	})
	mux.HandleFunc("/mf/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"schemeCode":100,"schemeName":"Alpha Growth","nav":"12.50","date":"03-01-2023"}]`)
	})
	u.server = httptest.NewServer(mux)
	t.Cleanup(u.server.Close)
	return u
}

func newTestClient(u *upstream) *Client {
	c := NewClient(Options{BaseURL: u.server.URL, Logger: zerolog.Nop()})
	c.now = func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) }
	return c
}

func TestHistory(t *testing.T) {
	u := newUpstream(t)
	c := newTestClient(u)

	h, err := c.History(context.Background(), 100, 2)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if h.Meta.SchemeName != "Alpha Growth" || h.History.Len() != 3 {
		t.Fatalf("unexpected history %+v", h.Meta)
	}
	obs := h.History.Observations()
	if obs[0].NAV != 12 || obs[2].NAV != 12.5 {
		t.Errorf("history must be ascending: %+v", obs)
	}
	if q := u.query.Load().(string); q != "startDate=2022-01-15&endDate=2024-01-15" {
		t.Errorf("unexpected query %q", q)
	}

	if _, err := c.History(context.Background(), 100, 2); err != nil {
		t.Fatalf("second History() error = %v", err)
	}
	if got := u.calls.Load(); got != 1 {
		t.Errorf("expected one upstream call, got %d", got)
	}
}

func TestHistoryDeduplicatesConcurrentRequests(t *testing.T) {
	u := newUpstream(t)
	c := newTestClient(u)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.History(context.Background(), 100, 10); err != nil {
				t.Errorf("History() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := u.calls.Load(); got != 1 {
		t.Errorf("expected one upstream call, got %d", got)
	}
}

func TestSharedHistorySurvivesCallerCancellation(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `{"meta":{"scheme_code":400,"scheme_name":"Slow Fund"},
			"data":[{"date":"02-01-2023","nav":"20.00"},{"date":"01-01-2023","nav":"19.50"}],"status":"SUCCESS"}`)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Options{BaseURL: srv.URL, Logger: zerolog.Nop()})

	cancelled, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	var firstErr, secondErr error
	var second *SchemeHistory
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, firstErr = c.History(cancelled, 400, 1)
	}()
	time.Sleep(10 * time.Millisecond)
	go func() {
		defer wg.Done()
		second, secondErr = c.History(context.Background(), 400, 1)
	}()
	wg.Wait()

	if !errors.Is(firstErr, context.DeadlineExceeded) {
		t.Errorf("cancelled caller error = %v, want deadline exceeded", firstErr)
	}
	if secondErr != nil {
		t.Fatalf("live caller error = %v", secondErr)
	}
	if second.Meta.SchemeName != "Slow Fund" || second.History.Len() != 2 {
		t.Errorf("unexpected history %+v", second.Meta)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected one upstream call, got %d", got)
	}

	if _, err := c.History(context.Background(), 400, 1); err != nil || calls.Load() != 1 {
		t.Errorf("cached history: err %v, calls %d", err, calls.Load())
	}
}

func TestHistoryErrors(t *testing.T) {
	u := newUpstream(t)
	c := newTestClient(u)

	tests := []struct {
		code int
		want error
	}{
		{200, ErrSchemeNotFound},
		{300, ErrUpstream},
		{404, ErrSchemeNotFound},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			_, err := c.History(context.Background(), tt.code, 1)
			if !errors.Is(err, tt.want) {
				t.Errorf("History(%d) error = %v, want %v", tt.code, err, tt.want)
			}
		})
	}
}

func TestFetchMany(t *testing.T) {
	u := newUpstream(t)
	c := newTestClient(u)

	got, err := c.FetchMany(context.Background(), []int{100, 200}, 1)
	if err != nil {
		t.Fatalf("FetchMany() error = %v", err)
	}
	if len(got) != 1 || got[100] == nil {
		t.Errorf("expected only scheme 100, got %v", got)
	}

	if _, err := c.FetchMany(context.Background(), []int{100, 300}, 1); !errors.Is(err, ErrUpstream) {
		t.Errorf("expected upstream error, got %v", err)
	}
}

func TestSchemeSearchLatest(t *testing.T) {
	u := newUpstream(t)
	c := newTestClient(u)
	ctx := context.Background()

	s, err := c.Scheme(ctx, 100)
	if err != nil {
		t.Fatalf("Scheme() error = %v", err)
	}
	if s.NAV != "12.50" || s.Date != "03-01-2023" || s.FundHouse != "Alpha AMC" {
		t.Errorf("unexpected scheme %+v", s)
	}

	results, err := c.Search(ctx, "alpha growth")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].SchemeName != "alpha growth" {
		t.Errorf("unexpected search results %+v", results)
	}

	latest, err := c.Latest(ctx, 10, 0)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if len(latest) != 1 || latest[0].SchemeCode != 100 {
		t.Errorf("unexpected latest %+v", latest)
	}
}
