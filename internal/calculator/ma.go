package calculator

import (
	"errors"
	"math"
)

// CalculateSMA computes the simple moving average of the trailing period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// SMASeries computes the simple moving average over a sliding window.
// Positions before the window fills, and windows touching an undefined
// input, are NaN.
func SMASeries(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 0 || len(values) < window {
		return out
	}
	sum := 0.0
	undefined := 0 // NaN inputs inside the current window
	for i, v := range values {
		if math.IsNaN(v) {
			undefined++
		} else {
			sum += v
		}
		if i >= window {
			old := values[i-window]
			if math.IsNaN(old) {
				undefined--
			} else {
				sum -= old
			}
		}
		if i >= window-1 && undefined == 0 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// EMASeries computes the exponential moving average with smoothing factor
// 2/(window+1). The average is seeded at the first defined value and is
// defined from there on; an undefined input carries the previous average
// forward. Recomputing over the same inputs is bit-for-bit identical.
func EMASeries(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	alpha := 2.0 / (float64(window) + 1.0)
	prev := math.NaN()
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			out[i] = prev
		case math.IsNaN(prev):
			prev = v
			out[i] = v
		default:
			prev = alpha*v + (1-alpha)*prev
			out[i] = prev
		}
	}
	return out
}
