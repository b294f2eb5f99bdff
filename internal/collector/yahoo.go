package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"

	"CycleSentinel/internal/model"
)

// YahooFetcher implements PriceFetcher on the Yahoo Finance chart API.
type YahooFetcher struct{}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher() *YahooFetcher { return &YahooFetcher{} }

func (f *YahooFetcher) Name() string { return "yahoo" }

// FetchDaily returns the adjusted daily closes for symbol over [start, end].
// The chart client carries no context, so cancellation is only checked at
// the call boundary.
func (f *YahooFetcher) FetchDaily(ctx context.Context, symbol string, start, end time.Time) (model.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return model.PriceSeries{}, err
	}
	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	var points []model.PricePoint
	for iter.Next() {
		bar := iter.Bar()
		if !bar.AdjClose.GreaterThan(decimal.Zero) {
			continue // null bar (holiday or feed glitch)
		}
		points = append(points, model.PricePoint{
			Date:  dateOf(time.Unix(int64(bar.Timestamp), 0)),
			Price: bar.AdjClose.InexactFloat64(),
		})
	}
	if err := iter.Err(); err != nil {
		return model.PriceSeries{}, fmt.Errorf("yahoo chart %s: %w: %w", symbol, ErrDataUnavailable, err)
	}
	if len(points) == 0 {
		return model.PriceSeries{}, fmt.Errorf("yahoo chart %s: no bars returned: %w", symbol, ErrDataUnavailable)
	}
	return normalizeSeries(symbol, points), nil
}

// normalizeSeries sorts points by date and collapses duplicate dates,
// keeping the last observation of each day.
func normalizeSeries(symbol string, points []model.PricePoint) model.PriceSeries {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	cleaned := make([]model.PricePoint, 0, len(points))
	for _, p := range points {
		if n := len(cleaned); n > 0 && cleaned[n-1].Date.Equal(p.Date) {
			cleaned[n-1] = p
			continue
		}
		cleaned = append(cleaned, p)
	}
	return model.PriceSeries{Symbol: symbol, Points: cleaned}
}

// dateOf truncates a timestamp to its UTC calendar day.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
