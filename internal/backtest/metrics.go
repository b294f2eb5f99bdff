package backtest

import (
	"math"

	"CycleSentinel/internal/model"
)

// tradingDaysPerYear annualizes daily return statistics.
const tradingDaysPerYear = 252

// Metrics summarizes a simulated equity curve against buy-and-hold.
func Metrics(equity, buyHold, stratReturns []float64, position []int) model.BacktestMetrics {
	m := model.BacktestMetrics{}
	if n := len(equity); n > 0 {
		m.TotalReturn = equity[n-1] - 1
		m.BuyHoldReturn = buyHold[n-1] - 1
	}
	m.MaxDrawdown = maxDrawdown(equity)
	m.BuyHoldMaxDrawdown = maxDrawdown(buyHold)
	if sr, ok := sharpe(stratReturns); ok {
		m.Sharpe = &sr
	}
	m.TimeInMarket = timeInMarket(position)
	return m
}

// maxDrawdown is the worst decline from a running peak, as a fraction at
// or below zero.
func maxDrawdown(equity []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			if dd := e/peak - 1; dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

// sharpe annualizes the mean daily return over its sample deviation.
// Reported unavailable rather than infinite when the deviation is zero.
func sharpe(returns []float64) (float64, bool) {
	n := len(returns)
	if n < 2 {
		return 0, false
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(n)

	ss := 0.0
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(n-1))
	if std == 0 {
		return 0, false
	}
	return mean / std * math.Sqrt(tradingDaysPerYear), true
}

// timeInMarket is the fraction of days spent long.
func timeInMarket(position []int) float64 {
	if len(position) == 0 {
		return 0
	}
	long := 0
	for _, p := range position {
		long += p
	}
	return float64(long) / float64(len(position))
}
