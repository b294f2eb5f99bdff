package calculator

import (
	"fmt"
	"math"
	"sort"
	"time"

	"CycleSentinel/internal/model"
)

// IndexConfig describes how the composite index is assembled. Weights are
// fractions summing to 1 and may include zero entries for tickers that
// participate in alignment but not in the weighted sum.
type IndexConfig struct {
	Weights       map[string]float64
	BTCSymbol     string
	AnchorSymbol  string
	SmoothingDays int
	MAWindows     []int
}

// IndexSeries is the assembled composite with its derived averages. All
// slices share the date grid; warm-up positions are NaN.
type IndexSeries struct {
	Dates    []time.Time
	Raw      []float64
	Smoothed []float64
	SMA      map[int][]float64
	EMA      map[int][]float64
}

// Latest returns the most recent date and smoothed value. The value is
// NaN while the smoothing window is still filling.
func (s *IndexSeries) Latest() (time.Time, float64) {
	n := len(s.Dates)
	if n == 0 {
		return time.Time{}, math.NaN()
	}
	return s.Dates[n-1], s.Smoothed[n-1]
}

// BuildIndex assembles the weighted multi-asset index. The alignment date
// is the latest first-valid date of the BTC and anchor series; every
// weighted series must have a value there. Equity gaps on the BTC
// calendar are carried forward, never backward. Each series is normalized
// to 100 at the alignment date, so the raw composite starts at exactly
// 100, then the published value is smoothed with a short moving average.
func BuildIndex(prices map[string]model.PriceSeries, cfg IndexConfig) (*IndexSeries, error) {
	if err := validateIndexConfig(cfg); err != nil {
		return nil, err
	}

	btc, ok := prices[cfg.BTCSymbol]
	if !ok || btc.Len() == 0 {
		return nil, &AlignmentError{Series: []string{cfg.BTCSymbol}}
	}
	anchor, ok := prices[cfg.AnchorSymbol]
	if !ok || anchor.Len() == 0 {
		return nil, &AlignmentError{Series: []string{cfg.AnchorSymbol}}
	}

	alignment := btc.Points[0].Date
	if first, _ := anchor.First(); first.Date.After(alignment) {
		alignment = first.Date
	}

	// The composite is published on the BTC calendar from the alignment
	// date on.
	var dates []time.Time
	for _, p := range btc.Points {
		if !p.Date.Before(alignment) {
			dates = append(dates, p.Date)
		}
	}
	if len(dates) == 0 {
		return nil, &AlignmentError{Series: []string{cfg.BTCSymbol, cfg.AnchorSymbol}}
	}

	symbols := make([]string, 0, len(cfg.Weights))
	for sym := range cfg.Weights {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	raw := make([]float64, len(dates))
	var unaligned []string
	for _, sym := range symbols {
		weight := cfg.Weights[sym]
		if weight == 0 {
			continue
		}
		series, ok := prices[sym]
		if !ok || series.Len() == 0 {
			unaligned = append(unaligned, sym)
			continue
		}
		filled, ok := fillOnto(dates, series)
		if !ok {
			unaligned = append(unaligned, sym)
			continue
		}
		base := filled[0]
		for i, v := range filled {
			raw[i] += weight * (v / base * 100)
		}
	}
	if len(unaligned) > 0 {
		return nil, &AlignmentError{Series: unaligned}
	}

	out := &IndexSeries{
		Dates:    dates,
		Raw:      raw,
		Smoothed: SMASeries(raw, cfg.SmoothingDays),
		SMA:      make(map[int][]float64, len(cfg.MAWindows)),
		EMA:      make(map[int][]float64, len(cfg.MAWindows)),
	}
	for _, w := range cfg.MAWindows {
		out.SMA[w] = SMASeries(out.Smoothed, w)
		out.EMA[w] = EMASeries(out.Smoothed, w)
	}
	return out, nil
}

func validateIndexConfig(cfg IndexConfig) error {
	if cfg.SmoothingDays <= 0 {
		return fmt.Errorf("smoothing days must be positive, got %d", cfg.SmoothingDays)
	}
	total := 0.0
	for _, w := range cfg.Weights {
		if w < 0 {
			return fmt.Errorf("negative weight %v", w)
		}
		total += w
	}
	if math.Abs(total-1.0) > 1e-9 {
		return fmt.Errorf("weights must sum to 1, got %v", total)
	}
	return nil
}

// fillOnto projects a series onto the date grid, carrying the last known
// value forward across gaps. Reports false when the series has no value
// at or before the first grid date.
func fillOnto(dates []time.Time, series model.PriceSeries) ([]float64, bool) {
	out := make([]float64, len(dates))
	j := 0
	last := math.NaN()
	for i, d := range dates {
		for j < series.Len() && !series.Points[j].Date.After(d) {
			last = series.Points[j].Price
			j++
		}
		if math.IsNaN(last) {
			return nil, false
		}
		out[i] = last
	}
	return out, true
}
