package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"CycleSentinel/internal/model"
)

// ErrDataUnavailable marks an external source that could not be reached or
// returned nothing usable. Callers fall back to cached state or report the
// indicator as unknown; they never substitute a fabricated value.
var ErrDataUnavailable = errors.New("data unavailable")

// PriceFetcher supplies daily adjusted-close history for one ticker.
type PriceFetcher interface {
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) (model.PriceSeries, error)
	Name() string
}

// SentimentFetcher supplies the published market-cycle sentiment series on
// the canonical 0-1 scale.
type SentimentFetcher interface {
	FetchScores(ctx context.Context) ([]model.HistoryPoint, error)
	Name() string
}

// RankFetcher supplies today's app-store chart position.
type RankFetcher interface {
	FetchRank(ctx context.Context) (model.Rank, error)
	Name() string
}

// TickerErrors reports which tickers failed during a multi-ticker fetch,
// so callers can tell a missing BTC series from a missing equity.
type TickerErrors map[string]error

func (e TickerErrors) Error() string {
	symbols := lo.Keys(e)
	sort.Strings(symbols)
	parts := lo.Map(symbols, func(sym string, _ int) string {
		return fmt.Sprintf("%s: %v", sym, e[sym])
	})
	return "fetch failed for " + strings.Join(parts, "; ")
}
