package backtest

import (
	"fmt"
	"math"
	"time"

	"CycleSentinel/internal/calculator"
	"CycleSentinel/internal/model"
)

// Config carries the fixed strategy thresholds, as opposed to the
// per-run parameters a caller may vary.
type Config struct {
	SentimentEntryMax float64 // enter when the published score is at or below
	SentimentExitMin  float64 // exit when the published score is at or above
	RankColdMin       int     // enter when the app rank is this bad or worse
	RankHotMax        int     // exit when the app rank is this good or better
	AccumStartMonths  int     // months before a halving the accumulation window opens
	AccumEndMonths    int     // months before a halving it closes
	DistStartMonths   int     // months after a halving the distribution window opens
	DistEndMonths     int     // months after a halving it closes
}

// DefaultConfig returns the published strategy thresholds.
func DefaultConfig() Config {
	return Config{
		SentimentEntryMax: 0.20,
		SentimentExitMin:  0.90,
		RankColdMin:       100,
		RankHotMax:        5,
		AccumStartMonths:  18,
		AccumEndMonths:    12,
		DistStartMonths:   12,
		DistEndMonths:     18,
	}
}

// Inputs are the aligned daily series a simulation runs on. All slices
// share the date grid; unknown sentiment and rank values are NaN.
type Inputs struct {
	Dates     []time.Time
	BTC       []float64
	Benchmark []float64
	Sentiment []float64
	RankOrd   []float64
	Halvings  []time.Time
}

func (in Inputs) validate() error {
	n := len(in.Dates)
	if n < 2 {
		return fmt.Errorf("need at least 2 aligned days, have %d: %w", n, calculator.ErrInsufficientHistory)
	}
	for name, l := range map[string]int{
		"btc":       len(in.BTC),
		"benchmark": len(in.Benchmark),
		"sentiment": len(in.Sentiment),
		"rank":      len(in.RankOrd),
	} {
		if l != n {
			return fmt.Errorf("%s series has %d points, grid has %d", name, l, n)
		}
	}
	return nil
}

// Signals are the per-day condition series driving the simulation. A
// condition over an undefined input is false: absence of data is never a
// reason to trade.
type Signals struct {
	SentimentLow []bool
	RankCold     []bool
	Underperf    []bool
	AccumWindow  []bool

	PiCrossover   []bool
	SentimentHigh []bool
	RankHot       []bool
	DistWindow    []bool

	Entry []bool
	Exit  []bool
}

// BuildSignals derives every condition series and the composite entry and
// exit signals. Strict mode requires all four conditions at once; loose
// mode requires any two.
func BuildSignals(in Inputs, params model.BacktestParams, cfg Config) *Signals {
	n := len(in.Dates)
	s := &Signals{
		SentimentLow:  make([]bool, n),
		RankCold:      make([]bool, n),
		Underperf:     make([]bool, n),
		AccumWindow:   make([]bool, n),
		PiCrossover:   make([]bool, n),
		SentimentHigh: make([]bool, n),
		RankHot:       make([]bool, n),
		DistWindow:    make([]bool, n),
		Entry:         make([]bool, n),
		Exit:          make([]bool, n),
	}

	relPctl := relativePercentile(in.BTC, in.Benchmark, params.LookbackWindow)
	piCross := crossoverFlags(in.BTC)

	for t := 0; t < n; t++ {
		sent := in.Sentiment[t]
		rank := in.RankOrd[t]

		s.SentimentLow[t] = !math.IsNaN(sent) && sent <= cfg.SentimentEntryMax
		s.RankCold[t] = !math.IsNaN(rank) && rank >= float64(cfg.RankColdMin)
		s.Underperf[t] = !math.IsNaN(relPctl[t]) && relPctl[t] <= params.UnderperfPercentile
		s.AccumWindow[t] = inWindow(in.Dates[t], in.Halvings, -cfg.AccumStartMonths, -cfg.AccumEndMonths)

		s.PiCrossover[t] = piCross[t]
		s.SentimentHigh[t] = !math.IsNaN(sent) && sent >= cfg.SentimentExitMin
		s.RankHot[t] = !math.IsNaN(rank) && rank <= float64(cfg.RankHotMax)
		s.DistWindow[t] = inWindow(in.Dates[t], in.Halvings, cfg.DistStartMonths, cfg.DistEndMonths)

		entryNeed, exitNeed := 2, 2
		if params.StrictEntry {
			entryNeed = 4
		}
		if params.StrictExit {
			exitNeed = 4
		}
		s.Entry[t] = countTrue(s.SentimentLow[t], s.RankCold[t], s.Underperf[t], s.AccumWindow[t]) >= entryNeed
		s.Exit[t] = countTrue(s.PiCrossover[t], s.SentimentHigh[t], s.RankHot[t], s.DistWindow[t]) >= exitNeed
	}
	return s
}

// Counts tallies how many days each condition fired.
func (s *Signals) Counts() model.ConditionCounts {
	return model.ConditionCounts{
		SentimentLow:  countDays(s.SentimentLow),
		RankCold:      countDays(s.RankCold),
		Underperf:     countDays(s.Underperf),
		AccumWindow:   countDays(s.AccumWindow),
		PiCrossover:   countDays(s.PiCrossover),
		SentimentHigh: countDays(s.SentimentHigh),
		RankHot:       countDays(s.RankHot),
		DistWindow:    countDays(s.DistWindow),
	}
}

// relativePercentile computes the expanding percentile of BTC's trailing
// return minus the benchmark's trailing return. The first window days are
// undefined.
func relativePercentile(btc, benchmark []float64, window int) []float64 {
	rel := make([]float64, len(btc))
	for t := range rel {
		if t < window || btc[t-window] == 0 || benchmark[t-window] == 0 {
			rel[t] = math.NaN()
			continue
		}
		rel[t] = (btc[t]/btc[t-window] - 1) - (benchmark[t]/benchmark[t-window] - 1)
	}
	return calculator.ExpandingPercentile(rel)
}

// crossoverFlags marks the days the Pi Cycle fast average rises through
// the doubled slow average, computed on the simulation grid.
func crossoverFlags(btc []float64) []bool {
	out := make([]bool, len(btc))
	sma111 := calculator.SMASeries(btc, calculator.PiShortWindow)
	sma350 := calculator.SMASeries(btc, calculator.PiLongWindow)
	for t := 1; t < len(btc); t++ {
		prevFast, prevSlow := sma111[t-1], 2*sma350[t-1]
		fast, slow := sma111[t], 2*sma350[t]
		if math.IsNaN(prevFast) || math.IsNaN(prevSlow) || math.IsNaN(fast) || math.IsNaN(slow) {
			continue
		}
		out[t] = prevFast < prevSlow && fast >= slow
	}
	return out
}

// inWindow reports whether date falls inside [halving+startMonths,
// halving+endMonths] for any halving. Negative offsets open windows
// before the halving.
func inWindow(date time.Time, halvings []time.Time, startMonths, endMonths int) bool {
	for _, h := range halvings {
		from := calculator.AddMonthsClamped(h, startMonths)
		until := calculator.AddMonthsClamped(h, endMonths)
		if !date.Before(from) && !date.After(until) {
			return true
		}
	}
	return false
}

func countTrue(conditions ...bool) int {
	n := 0
	for _, c := range conditions {
		if c {
			n++
		}
	}
	return n
}

func countDays(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
