package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"

	"CycleSentinel/internal/model"
)

// AppStoreFetcher reads the Apple top-free chart feed and locates the
// tracked app's position.
type AppStoreFetcher struct {
	client  *resty.Client
	feedURL string
	appID   string
}

// NewAppStoreFetcher creates a new fetcher with optional proxy support.
func NewAppStoreFetcher(feedURL, appID, proxyURL string) *AppStoreFetcher {
	client := resty.New().
		SetTimeout(20 * time.Second).
		SetHeader("Accept", "application/json")
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &AppStoreFetcher{client: client, feedURL: feedURL, appID: appID}
}

func (f *AppStoreFetcher) Name() string { return "appstore" }

type feedApp struct {
	ID string `json:"id"`
}

type appFeed struct {
	Feed struct {
		Results []feedApp `json:"results"`
	} `json:"feed"`
}

// FetchRank returns the 1-based chart position of the tracked app, or the
// out-of-range rank when the app is absent from the feed. A transport or
// decode failure is an error, never a stand-in rank.
func (f *AppStoreFetcher) FetchRank(ctx context.Context) (model.Rank, error) {
	var out appFeed
	resp, err := f.client.R().SetContext(ctx).SetResult(&out).Get(f.feedURL)
	if err != nil {
		return model.Rank{}, fmt.Errorf("app store feed: %w: %w", ErrDataUnavailable, err)
	}
	if resp.IsError() {
		return model.Rank{}, fmt.Errorf("app store feed: status %s: %w", resp.Status(), ErrDataUnavailable)
	}
	if len(out.Feed.Results) == 0 {
		return model.Rank{}, fmt.Errorf("app store feed: empty result list: %w", ErrDataUnavailable)
	}
	_, idx, found := lo.FindIndexOf(out.Feed.Results, func(app feedApp) bool {
		return app.ID == f.appID
	})
	if !found {
		return model.OutOfRange(), nil
	}
	return model.RankedAt(idx + 1), nil
}
