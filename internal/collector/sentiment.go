package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"CycleSentinel/internal/calculator"
	"CycleSentinel/internal/model"
)

// CachedScoreFunc returns the most recent previously persisted sentiment
// reading, if one exists.
type CachedScoreFunc func() (model.SentimentScore, bool)

// SentimentProvider resolves the market-cycle sentiment score through a
// degradation chain: live source, then last persisted value, then a
// price-structure approximation. Every reading carries its provenance so
// a degraded value can never pass as a live one.
type SentimentProvider struct {
	Fetcher   SentimentFetcher
	Cached    CachedScoreFunc
	Prices    PriceFetcher
	BTCSymbol string
	Now       func() time.Time
}

// Fetch resolves the current score. The full published history is
// returned alongside it when the live source answered; degraded readings
// come with no history.
func (p *SentimentProvider) Fetch(ctx context.Context) (model.SentimentScore, []model.HistoryPoint, error) {
	points, liveErr := p.Fetcher.FetchScores(ctx)
	if liveErr == nil && len(points) > 0 {
		last := points[len(points)-1]
		score := model.SentimentScore{Score: last.Value, Provenance: model.ProvenanceLive, Date: last.Date}
		return score, points, nil
	}

	log.Printf("[WARN] live sentiment fetch failed: %v, trying last persisted value", liveErr)
	if p.Cached != nil {
		if cached, ok := p.Cached(); ok {
			cached.Provenance = model.ProvenanceCached
			return cached, nil, nil
		}
	}

	log.Printf("[WARN] no persisted sentiment available, approximating from price structure")
	approx, approxErr := p.approximate(ctx)
	if approxErr != nil {
		return model.SentimentScore{}, nil, fmt.Errorf("sentiment: %w: live: %v; approximation: %v",
			ErrDataUnavailable, liveErr, approxErr)
	}
	score := model.SentimentScore{Score: approx, Provenance: model.ProvenanceApproximated, Date: dateOf(p.now())}
	return score, nil, nil
}

func (p *SentimentProvider) approximate(ctx context.Context) (float64, error) {
	if p.Prices == nil {
		return 0, errors.New("no price source configured")
	}
	end := p.now()
	start := end.AddDate(-2, 0, 0) // two years covers every feature window
	series, err := p.Prices.FetchDaily(ctx, p.BTCSymbol, start, end)
	if err != nil {
		return 0, err
	}
	return calculator.ApproximateSentiment(series.Prices())
}

func (p *SentimentProvider) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}
