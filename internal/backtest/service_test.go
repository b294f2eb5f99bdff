package backtest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"CycleSentinel/internal/collector"
	"CycleSentinel/internal/model"
)

type stubStore struct {
	points []model.HistoryPoint
	err    error
}

func (s *stubStore) GetHistory(string, time.Time) ([]model.HistoryPoint, error) {
	return s.points, s.err
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFfillOnto_CarriesForwardOnly(t *testing.T) {
	grid := []time.Time{
		day(2024, 1, 1), day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 4), day(2024, 1, 5),
	}
	points := []model.HistoryPoint{
		{Date: day(2024, 1, 2), Value: 10},
		{Date: day(2024, 1, 4), Value: 20},
	}
	got := ffillOnto(grid, points)

	if !math.IsNaN(got[0]) {
		t.Errorf("day before the first observation should be undefined, got %v", got[0])
	}
	want := []float64{math.NaN(), 10, 10, 20, 20}
	for i := 1; i < len(want); i++ {
		if got[i] != want[i] {
			t.Errorf("grid day %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEqualWeightBenchmark_NormalizesEachEquity(t *testing.T) {
	prices := map[string]model.PriceSeries{
		"AAPL": {Symbol: "AAPL", Points: []model.PricePoint{
			{Date: day(2024, 1, 1), Price: 100},
			{Date: day(2024, 1, 2), Price: 110},
			{Date: day(2024, 1, 3), Price: 120},
		}},
		"MSFT": {Symbol: "MSFT", Points: []model.PricePoint{
			{Date: day(2024, 1, 1), Price: 50},
			{Date: day(2024, 1, 2), Price: 60},
		}},
	}
	bench := equalWeightBenchmark(prices, []string{"AAPL", "MSFT"})

	if got := bench[day(2024, 1, 1).Unix()]; math.Abs(got-1) > 1e-12 {
		t.Errorf("first day %v, want 1", got)
	}
	// (110/100 + 60/50) / 2
	if got := bench[day(2024, 1, 2).Unix()]; math.Abs(got-1.15) > 1e-12 {
		t.Errorf("second day %v, want 1.15", got)
	}
	// MSFT has no print; AAPL alone defines the day.
	if got := bench[day(2024, 1, 3).Unix()]; math.Abs(got-1.2) > 1e-12 {
		t.Errorf("third day %v, want 1.2", got)
	}
}

func TestAlign_InnerJoinsOnSharedDates(t *testing.T) {
	s := &Service{BTCSymbol: "BTC-USD", Equities: []string{"AAPL"}}
	prices := map[string]model.PriceSeries{
		"BTC-USD": {Symbol: "BTC-USD", Points: []model.PricePoint{
			{Date: day(2024, 1, 1), Price: 100},
			{Date: day(2024, 1, 2), Price: 101},
			{Date: day(2024, 1, 3), Price: 102}, // no equity print this day
			{Date: day(2024, 1, 4), Price: 103},
		}},
		"AAPL": {Symbol: "AAPL", Points: []model.PricePoint{
			{Date: day(2024, 1, 1), Price: 180},
			{Date: day(2024, 1, 2), Price: 181},
			{Date: day(2024, 1, 4), Price: 182},
		}},
	}
	sentiment := []model.HistoryPoint{{Date: day(2024, 1, 1), Value: 0.4}}
	rank := []model.HistoryPoint{{Date: day(2024, 1, 2), Value: 120}}

	in, err := s.align(prices, sentiment, rank)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(in.Dates) != 3 {
		t.Fatalf("got %d aligned days, want 3", len(in.Dates))
	}
	if !in.Dates[2].Equal(day(2024, 1, 4)) {
		t.Errorf("last aligned day %s, want 2024-01-04", in.Dates[2].Format("2006-01-02"))
	}
	if in.Sentiment[0] != 0.4 || in.Sentiment[2] != 0.4 {
		t.Errorf("sentiment fill %v, want 0.4 throughout", in.Sentiment)
	}
	if !math.IsNaN(in.RankOrd[0]) || in.RankOrd[1] != 120 {
		t.Errorf("rank fill %v, want NaN then 120", in.RankOrd)
	}
}

func TestService_Run_DefaultsAndSimulates(t *testing.T) {
	now := time.Now().UTC()
	mock := &collector.MockFetcher{
		Series: map[string]model.PriceSeries{
			"BTC-USD": collector.GenerateSeries("BTC-USD", 30000, 120),
			"AAPL":    collector.GenerateSeries("AAPL", 180, 120),
			"MSFT":    collector.GenerateSeries("MSFT", 400, 120),
		},
		Scores: []model.HistoryPoint{
			{Date: now.AddDate(0, 0, -110), Value: 0.3},
			{Date: now.AddDate(0, 0, -40), Value: 0.6},
		},
	}
	svc := &Service{
		Collector: &collector.Collector{Prices: mock},
		Sentiment: mock,
		Store: &stubStore{points: []model.HistoryPoint{
			{Date: now.AddDate(0, 0, -110), Value: 150},
		}},
		BTCSymbol:     "BTC-USD",
		Equities:      []string{"AAPL", "MSFT"},
		Halvings:      []time.Time{day(2012, 11, 28)},
		Cfg:           DefaultConfig(),
		DefaultStart:  now.AddDate(0, 0, -100),
		DefaultWindow: 60,
		DefaultPctl:   0.5,
	}

	res, err := svc.Run(context.Background(), model.BacktestParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Params.LookbackWindow != 60 || res.Params.UnderperfPercentile != 0.5 {
		t.Errorf("defaults not applied: window %d, percentile %v",
			res.Params.LookbackWindow, res.Params.UnderperfPercentile)
	}
	if len(res.Dates) < 60 {
		t.Fatalf("got %d aligned days, want the bulk of the window", len(res.Dates))
	}
	if len(res.Position) != len(res.Dates) || len(res.Equity) != len(res.Dates) {
		t.Error("result series must share the date grid")
	}
	if res.Position[0] != 0 {
		t.Error("simulation must start flat")
	}
}

func TestService_Run_FailsWithoutRankHistory(t *testing.T) {
	now := time.Now().UTC()
	mock := &collector.MockFetcher{
		Series: map[string]model.PriceSeries{
			"BTC-USD": collector.GenerateSeries("BTC-USD", 30000, 120),
			"AAPL":    collector.GenerateSeries("AAPL", 180, 120),
		},
		Scores: []model.HistoryPoint{{Date: now.AddDate(0, 0, -90), Value: 0.3}},
	}
	svc := &Service{
		Collector:     &collector.Collector{Prices: mock},
		Sentiment:     mock,
		Store:         &stubStore{},
		BTCSymbol:     "BTC-USD",
		Equities:      []string{"AAPL"},
		Cfg:           DefaultConfig(),
		DefaultStart:  now.AddDate(0, 0, -100),
		DefaultWindow: 60,
		DefaultPctl:   0.5,
	}

	_, err := svc.Run(context.Background(), model.BacktestParams{})
	if !errors.Is(err, collector.ErrDataUnavailable) {
		t.Errorf("expected unavailable-data error for empty rank history, got %v", err)
	}
}

func TestService_Run_RejectsBadParams(t *testing.T) {
	svc := &Service{DefaultStart: day(2024, 1, 1), DefaultWindow: 180, DefaultPctl: 0.5}
	cases := []struct {
		name   string
		params model.BacktestParams
	}{
		{"window too small", model.BacktestParams{LookbackWindow: 10, UnderperfPercentile: 0.5}},
		{"window too large", model.BacktestParams{LookbackWindow: 500, UnderperfPercentile: 0.5}},
		{"percentile above one", model.BacktestParams{LookbackWindow: 180, UnderperfPercentile: 1.5}},
		{"start after end", model.BacktestParams{
			Start: day(2024, 6, 1), End: day(2024, 1, 1),
			LookbackWindow: 180, UnderperfPercentile: 0.5,
		}},
	}
	for _, tc := range cases {
		_, err := svc.Run(context.Background(), tc.params)
		if !errors.Is(err, ErrBadParams) {
			t.Errorf("%s: err = %v, want ErrBadParams", tc.name, err)
		}
	}
}
