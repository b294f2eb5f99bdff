package backtest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"CycleSentinel/internal/collector"
	"CycleSentinel/internal/model"
)

// Lookback window bounds. Outside these the relative-performance signal
// is either all noise or has almost no defined days.
const (
	WindowMin = 60
	WindowMax = 400
)

// ErrBadParams marks a run whose parameters fail validation before any
// data is fetched.
var ErrBadParams = errors.New("invalid backtest parameters")

// Store is the slice of the persistence layer the backtester reads: the
// rank condition feeds off the recorded daily ordinals, since no public
// source serves historical chart positions.
type Store interface {
	GetHistory(name string, since time.Time) ([]model.HistoryPoint, error)
}

// Service assembles aligned simulation inputs from the live price
// sources, the published sentiment series and the recorded rank history.
type Service struct {
	Collector *collector.Collector
	Sentiment collector.SentimentFetcher
	Store     Store

	BTCSymbol string
	Equities  []string
	Halvings  []time.Time
	Cfg       Config

	DefaultStart  time.Time
	DefaultWindow int
	DefaultPctl   float64
}

// Run fills in defaulted parameters, gathers and aligns every input
// series, and simulates the strategy. Any series that cannot be fetched
// or aligned fails the run with the series named; nothing is substituted.
func (s *Service) Run(ctx context.Context, params model.BacktestParams) (*model.BacktestResult, error) {
	params = s.applyDefaults(params)
	if err := validateParams(params); err != nil {
		return nil, err
	}

	prices, err := s.Collector.FetchPriceSet(ctx, s.BTCSymbol, s.Equities, params.Start, params.End)
	if err != nil {
		return nil, fmt.Errorf("backtest price data: %w", err)
	}

	sentPoints, err := s.Sentiment.FetchScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("backtest sentiment series: %w", err)
	}

	rankPoints, err := s.Store.GetHistory(model.KeyRank, params.Start)
	if err != nil {
		return nil, fmt.Errorf("backtest rank series: %w", err)
	}
	if len(rankPoints) == 0 {
		return nil, fmt.Errorf("backtest rank series %q: no recorded history: %w",
			model.KeyRank, collector.ErrDataUnavailable)
	}

	in, err := s.align(prices, sentPoints, rankPoints)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] backtest over %d aligned days (%s to %s)",
		len(in.Dates), in.Dates[0].Format("2006-01-02"), in.Dates[len(in.Dates)-1].Format("2006-01-02"))
	return Run(in, params, s.Cfg)
}

func (s *Service) applyDefaults(params model.BacktestParams) model.BacktestParams {
	if params.Start.IsZero() {
		params.Start = s.DefaultStart
	}
	if params.End.IsZero() {
		params.End = time.Now().UTC()
	}
	if params.LookbackWindow == 0 {
		params.LookbackWindow = s.DefaultWindow
	}
	if params.UnderperfPercentile == 0 {
		params.UnderperfPercentile = s.DefaultPctl
	}
	return params
}

func validateParams(params model.BacktestParams) error {
	if !params.Start.Before(params.End) {
		return fmt.Errorf("%w: start %s is not before end %s", ErrBadParams,
			params.Start.Format("2006-01-02"), params.End.Format("2006-01-02"))
	}
	if params.LookbackWindow < WindowMin || params.LookbackWindow > WindowMax {
		return fmt.Errorf("%w: lookback window %d outside [%d, %d]", ErrBadParams,
			params.LookbackWindow, WindowMin, WindowMax)
	}
	if params.UnderperfPercentile <= 0 || params.UnderperfPercentile > 1 {
		return fmt.Errorf("%w: underperformance percentile %v outside (0, 1]", ErrBadParams, params.UnderperfPercentile)
	}
	return nil
}

// align inner-joins the BTC series with the equal-weight benchmark and
// projects the scalar histories onto the joined grid, carrying values
// forward only. Days before a series' first observation stay undefined.
func (s *Service) align(prices map[string]model.PriceSeries, sentiment, rank []model.HistoryPoint) (Inputs, error) {
	btc, ok := prices[s.BTCSymbol]
	if !ok || btc.Len() == 0 {
		return Inputs{}, fmt.Errorf("backtest: %s: %w", s.BTCSymbol, collector.ErrDataUnavailable)
	}
	bench := equalWeightBenchmark(prices, s.Equities)
	if len(bench) == 0 {
		return Inputs{}, fmt.Errorf("backtest benchmark: no equity series overlap: %w", collector.ErrDataUnavailable)
	}

	in := Inputs{Halvings: s.Halvings}
	for _, p := range btc.Points {
		b, ok := bench[p.Date.Unix()]
		if !ok {
			continue // weekend or holiday: no benchmark print
		}
		in.Dates = append(in.Dates, p.Date)
		in.BTC = append(in.BTC, p.Price)
		in.Benchmark = append(in.Benchmark, b)
	}
	if len(in.Dates) == 0 {
		return Inputs{}, fmt.Errorf("backtest: BTC and benchmark share no dates: %w", collector.ErrDataUnavailable)
	}
	in.Sentiment = ffillOnto(in.Dates, sentiment)
	in.RankOrd = ffillOnto(in.Dates, rank)
	return in, nil
}

// equalWeightBenchmark averages the equities after normalizing each to
// its own first observation, keyed by unix day. A date needs only one
// equity print to be defined.
func equalWeightBenchmark(prices map[string]model.PriceSeries, equities []string) map[int64]float64 {
	sums := make(map[int64]float64)
	counts := make(map[int64]int)
	for _, sym := range equities {
		series, ok := prices[sym]
		if !ok || series.Len() == 0 {
			continue
		}
		base := series.Points[0].Price
		if base == 0 {
			continue
		}
		for _, p := range series.Points {
			key := p.Date.Unix()
			sums[key] += p.Price / base
			counts[key]++
		}
	}
	out := make(map[int64]float64, len(sums))
	for key, sum := range sums {
		out[key] = sum / float64(counts[key])
	}
	return out
}

// ffillOnto projects (date, value) points onto the grid, carrying the
// last known value forward. Grid days before the first point are NaN.
func ffillOnto(grid []time.Time, points []model.HistoryPoint) []float64 {
	out := make([]float64, len(grid))
	last := math.NaN()
	j := 0
	for i, d := range grid {
		for j < len(points) && !points[j].Date.After(d) {
			last = points[j].Value
			j++
		}
		out[i] = last
	}
	return out
}
