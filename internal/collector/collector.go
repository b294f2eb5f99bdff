package collector

import (
	"context"
	"fmt"
	"log"
	"time"

	"CycleSentinel/internal/model"
)

// Collector bundles the external data sources for the refresh cycle.
type Collector struct {
	Prices      PriceFetcher
	BTCFallback PriceFetcher // optional second source for the BTC series
	Sentiment   *SentimentProvider
	Rank        RankFetcher
}

// NewCollector creates a new Collector.
func NewCollector(prices PriceFetcher, sentiment *SentimentProvider, rank RankFetcher) *Collector {
	return &Collector{Prices: prices, Sentiment: sentiment, Rank: rank}
}

// FetchBTC retrieves the BTC daily history, trying the fallback source
// when the primary fails.
func (c *Collector) FetchBTC(ctx context.Context, symbol string, start, end time.Time) (model.PriceSeries, error) {
	series, err := c.Prices.FetchDaily(ctx, symbol, start, end)
	if err != nil && c.BTCFallback != nil {
		log.Printf("[WARN] %s via %s failed: %v, trying %s",
			symbol, c.Prices.Name(), err, c.BTCFallback.Name())
		return c.BTCFallback.FetchDaily(ctx, symbol, start, end)
	}
	return series, err
}

// FetchPriceSet retrieves daily history for BTC and every equity. Failures
// are collected per ticker so the caller knows exactly which series are
// missing; the BTC series additionally tries the fallback source before
// counting as failed.
func (c *Collector) FetchPriceSet(ctx context.Context, btcSymbol string, equities []string, start, end time.Time) (map[string]model.PriceSeries, error) {
	out := make(map[string]model.PriceSeries, len(equities)+1)
	errs := make(TickerErrors)

	if series, err := c.FetchBTC(ctx, btcSymbol, start, end); err != nil {
		errs[btcSymbol] = err
	} else {
		out[btcSymbol] = series
	}
	for _, sym := range equities {
		series, err := c.Prices.FetchDaily(ctx, sym, start, end)
		if err != nil {
			errs[sym] = err
			continue
		}
		out[sym] = series
	}
	if len(errs) > 0 {
		return out, errs
	}
	return out, nil
}

// MockFetcher returns controllable fixed data for development and testing.
// It implements all three fetch interfaces.
type MockFetcher struct {
	Series map[string]model.PriceSeries
	Scores []model.HistoryPoint
	Rank   model.Rank
	Err    error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDaily(_ context.Context, symbol string, start, end time.Time) (model.PriceSeries, error) {
	if m.Err != nil {
		return model.PriceSeries{}, m.Err
	}
	series, ok := m.Series[symbol]
	if !ok {
		return model.PriceSeries{}, fmt.Errorf("mock has no series for %s: %w", symbol, ErrDataUnavailable)
	}
	out := model.PriceSeries{Symbol: symbol}
	for _, p := range series.Points {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		out.Points = append(out.Points, p)
	}
	if len(out.Points) == 0 {
		return model.PriceSeries{}, fmt.Errorf("mock has no %s data in range: %w", symbol, ErrDataUnavailable)
	}
	return out, nil
}

func (m *MockFetcher) FetchScores(context.Context) ([]model.HistoryPoint, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Scores, nil
}

func (m *MockFetcher) FetchRank(context.Context) (model.Rank, error) {
	if m.Err != nil {
		return model.Rank{}, m.Err
	}
	return m.Rank, nil
}

// GenerateSeries builds a deterministic daily series ending today, for
// development runs without network access.
func GenerateSeries(symbol string, base float64, days int) model.PriceSeries {
	points := make([]model.PricePoint, days)
	today := dateOf(time.Now())
	for i := 0; i < days; i++ {
		drift := 1 + float64(i-days/2)*0.001
		points[i] = model.PricePoint{
			Date:  today.AddDate(0, 0, -(days - 1 - i)),
			Price: base * drift,
		}
	}
	return model.PriceSeries{Symbol: symbol, Points: points}
}
