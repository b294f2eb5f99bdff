package collector

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"CycleSentinel/internal/model"
)

// CoinGeckoFetcher implements PriceFetcher for the BTC series only, as a
// fallback behind the primary source.
type CoinGeckoFetcher struct {
	client *resty.Client
	coinID string
}

// NewCoinGeckoFetcher creates a new fetcher with optional proxy support.
func NewCoinGeckoFetcher(baseURL, proxyURL string) *CoinGeckoFetcher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json")
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &CoinGeckoFetcher{client: client, coinID: "bitcoin"}
}

func (f *CoinGeckoFetcher) Name() string { return "coingecko" }

// geckoMarketChart is the market_chart/range response: rows of
// [millisecond timestamp, price].
type geckoMarketChart struct {
	Prices [][]float64 `json:"prices"`
}

func (f *CoinGeckoFetcher) FetchDaily(ctx context.Context, symbol string, start, end time.Time) (model.PriceSeries, error) {
	if !strings.HasPrefix(strings.ToUpper(symbol), "BTC") {
		return model.PriceSeries{}, fmt.Errorf("coingecko fallback only serves the BTC series, got %s: %w",
			symbol, ErrDataUnavailable)
	}
	var out geckoMarketChart
	err := fetchWithRetry(ctx, 3, func() error {
		resp, err := f.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"vs_currency": "usd",
				"from":        strconv.FormatInt(start.Unix(), 10),
				"to":          strconv.FormatInt(end.Unix(), 10),
			}).
			SetResult(&out).
			Get("/api/v3/coins/" + f.coinID + "/market_chart/range")
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("status %s", resp.Status())
		}
		return nil
	})
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("coingecko market chart: %w: %w", ErrDataUnavailable, err)
	}

	points := make([]model.PricePoint, 0, len(out.Prices))
	for _, row := range out.Prices {
		if len(row) != 2 || row[1] <= 0 {
			continue
		}
		points = append(points, model.PricePoint{
			Date:  dateOf(time.UnixMilli(int64(row[0]))),
			Price: row[1],
		})
	}
	if len(points) == 0 {
		return model.PriceSeries{}, fmt.Errorf("coingecko market chart: no prices returned: %w", ErrDataUnavailable)
	}
	return normalizeSeries(symbol, points), nil
}

// fetchWithRetry runs fn with exponential backoff between attempts,
// honoring context cancellation.
func fetchWithRetry(ctx context.Context, attempts int, fn func() error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := fn(); err != nil {
			lastErr = err
			if i == attempts-1 {
				break
			}
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Printf("[WARN] fetch attempt %d/%d failed: %v, retrying in %v", i+1, attempts, err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}
