package calculator

import (
	"fmt"
	"math"
	"time"

	"CycleSentinel/internal/model"
)

// Pi Cycle window lengths, in daily closes.
const (
	PiShortWindow = 111
	PiLongWindow  = 350
)

// PiCycleSeries holds the Pi Cycle top structure over a price history:
// the fast average, the doubled slow average, their ratio, and every
// historical upward crossover. Warm-up positions are NaN.
type PiCycleSeries struct {
	Dates      []time.Time
	Price      []float64
	SMA111     []float64
	SMA350x2   []float64
	Ratio      []float64
	Crossovers []model.Crossover
}

// BuildPiCycle computes the 111/350-day moving-average structure of the
// price history. A crossover is recorded on each day the fast average
// closes at or above the doubled slow average after closing below it the
// day before.
func BuildPiCycle(series model.PriceSeries) (*PiCycleSeries, error) {
	if series.Len() < PiLongWindow {
		return nil, fmt.Errorf("pi cycle needs %d daily closes, have %d: %w",
			PiLongWindow, series.Len(), ErrInsufficientHistory)
	}
	prices := series.Prices()
	sma111 := SMASeries(prices, PiShortWindow)
	sma350 := SMASeries(prices, PiLongWindow)

	out := &PiCycleSeries{
		Dates:    series.Dates(),
		Price:    prices,
		SMA111:   sma111,
		SMA350x2: make([]float64, len(prices)),
		Ratio:    make([]float64, len(prices)),
	}
	for i := range prices {
		out.SMA350x2[i] = sma350[i] * 2
		out.Ratio[i] = sma111[i] / out.SMA350x2[i]
	}
	for t := 1; t < len(prices); t++ {
		prevFast, prevSlow := sma111[t-1], out.SMA350x2[t-1]
		fast, slow := sma111[t], out.SMA350x2[t]
		if math.IsNaN(prevFast) || math.IsNaN(prevSlow) || math.IsNaN(fast) || math.IsNaN(slow) {
			continue
		}
		if prevFast < prevSlow && fast >= slow {
			out.Crossovers = append(out.Crossovers, model.Crossover{Date: out.Dates[t], Price: prices[t]})
		}
	}
	return out, nil
}

// Latest returns the most recent date, ratio and both averages.
func (p *PiCycleSeries) Latest() (date time.Time, ratio, sma111, sma350x2 float64) {
	n := len(p.Dates)
	if n == 0 {
		return time.Time{}, math.NaN(), math.NaN(), math.NaN()
	}
	return p.Dates[n-1], p.Ratio[n-1], p.SMA111[n-1], p.SMA350x2[n-1]
}

// Tail returns a view of the most recent n observations for charting.
// Crossovers outside the window are dropped.
func (p *PiCycleSeries) Tail(n int) *PiCycleSeries {
	if n <= 0 || n >= len(p.Dates) {
		return p
	}
	start := len(p.Dates) - n
	cut := p.Dates[start]
	tail := &PiCycleSeries{
		Dates:    p.Dates[start:],
		Price:    p.Price[start:],
		SMA111:   p.SMA111[start:],
		SMA350x2: p.SMA350x2[start:],
		Ratio:    p.Ratio[start:],
	}
	for _, c := range p.Crossovers {
		if !c.Date.Before(cut) {
			tail.Crossovers = append(tail.Crossovers, c)
		}
	}
	return tail
}
