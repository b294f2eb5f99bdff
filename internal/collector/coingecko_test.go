package collector

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCoinGeckoFetchDaily_ParsesMarketChart(t *testing.T) {
	srv := feedServer(t, 200,
		`{"prices":[[1704067200000,42000.5],[1704153600000,43100.25],[1704153600000,43200.0]]}`)
	f := NewCoinGeckoFetcher(srv.URL, "")

	series, err := f.FetchDaily(context.Background(), "BTC-USD",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Duplicate dates collapse, keeping the later observation.
	if series.Len() != 2 {
		t.Fatalf("got %d points, want 2", series.Len())
	}
	last, _ := series.Last()
	if last.Price != 43200.0 {
		t.Errorf("last price %v, want 43200.0", last.Price)
	}
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !last.Date.Equal(want) {
		t.Errorf("last date %s, want %s", last.Date, want)
	}
}

func TestCoinGeckoFetchDaily_OnlyServesBTC(t *testing.T) {
	f := NewCoinGeckoFetcher("http://unused.invalid", "")
	_, err := f.FetchDaily(context.Background(), "AAPL", time.Time{}, time.Now())
	if !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable for a non-BTC symbol, got %v", err)
	}
}

func TestFetchWithRetry_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := fetchWithRetry(ctx, 3, func() error {
		calls++
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("a canceled context must stop the retry loop, got %d calls", calls)
	}
}
