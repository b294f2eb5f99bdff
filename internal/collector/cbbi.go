package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"CycleSentinel/internal/model"
)

// CBBIFetcher retrieves the published market-cycle confidence series,
// first from the JSON data endpoint, then by scraping the headline score
// off the public page. The JSON path yields the full daily history; the
// scrape yields a single point for today.
type CBBIFetcher struct {
	client  *resty.Client
	dataURL string
	pageURL string
	now     func() time.Time
}

// NewCBBIFetcher creates a new fetcher with optional proxy support.
func NewCBBIFetcher(dataURL, pageURL, proxyURL string) *CBBIFetcher {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", "Mozilla/5.0")
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &CBBIFetcher{client: client, dataURL: dataURL, pageURL: pageURL, now: time.Now}
}

func (f *CBBIFetcher) Name() string { return "cbbi" }

// FetchScores returns the published confidence history on the 0-1 scale,
// one point per day, ordered by date.
func (f *CBBIFetcher) FetchScores(ctx context.Context) ([]model.HistoryPoint, error) {
	points, jsonErr := f.fetchJSON(ctx)
	if jsonErr == nil {
		return points, nil
	}
	log.Printf("[WARN] cbbi data endpoint failed: %v, falling back to page scrape", jsonErr)

	score, scrapeErr := f.scrapeScore(ctx)
	if scrapeErr != nil {
		return nil, fmt.Errorf("cbbi: %w: endpoint: %v; scrape: %v", ErrDataUnavailable, jsonErr, scrapeErr)
	}
	return []model.HistoryPoint{{Date: dateOf(f.now()), Value: score}}, nil
}

func (f *CBBIFetcher) fetchJSON(ctx context.Context) ([]model.HistoryPoint, error) {
	var out struct {
		Confidence map[string]float64 `json:"Confidence"`
	}
	resp, err := f.client.R().SetContext(ctx).SetResult(&out).Get(f.dataURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("status %s", resp.Status())
	}
	if len(out.Confidence) == 0 {
		return nil, errors.New("confidence series empty")
	}

	points := make([]model.HistoryPoint, 0, len(out.Confidence))
	for key, v := range out.Confidence {
		ts, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue // non-timestamp keys
		}
		if v < 0 || v > 1 {
			continue
		}
		points = append(points, model.HistoryPoint{Date: dateOf(time.Unix(ts, 0)), Value: v})
	}
	if len(points) == 0 {
		return nil, errors.New("no parseable confidence points")
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return dedupeHistory(points), nil
}

var scoreRe = regexp.MustCompile(`\b(\d{1,3})\b`)

// scrapeScore extracts the headline 0-100 score from the public page. The
// score shows up in the page title and in score-ish containers; the first
// plausible number wins.
func (f *CBBIFetcher) scrapeScore(ctx context.Context) (float64, error) {
	resp, err := f.client.R().SetContext(ctx).Get(f.pageURL)
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, fmt.Errorf("status %s", resp.Status())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return 0, fmt.Errorf("parse page: %w", err)
	}

	candidates := []string{doc.Find("title").Text()}
	doc.Find("[class*=score], [id*=score], [class*=index]").Each(func(_ int, sel *goquery.Selection) {
		candidates = append(candidates, sel.Text())
	})
	for _, text := range candidates {
		m := scoreRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		if n >= 0 && n <= 100 {
			return float64(n) / 100.0, nil
		}
	}
	return 0, errors.New("score not found in page")
}

// dedupeHistory collapses same-day points, keeping the last.
func dedupeHistory(points []model.HistoryPoint) []model.HistoryPoint {
	out := make([]model.HistoryPoint, 0, len(points))
	for _, p := range points {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}
