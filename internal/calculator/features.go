package calculator

import (
	"errors"
	"fmt"
	"math"
)

// Sentiment approximation: when neither the live score nor a cached one is
// available, a stand-in is derived from BTC price structure alone. The
// blend weights favor the trailing-range position, with trend stretch and
// momentum as secondary terms.
const (
	approxRangeWeight    = 0.45
	approxTrendWeight    = 0.35
	approxMomentumWeight = 0.20

	approxRangeWindow = 365
	approxTrendWindow = 350
	approxRSIPeriod   = 14
)

// RangePosition returns where the last close sits within the trailing
// window's range, from 0 (at the low) to 1 (at the high).
func RangePosition(closes []float64, window int) (float64, error) {
	if len(closes) == 0 {
		return 0, errors.New("no closes provided")
	}
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}
	start := len(closes) - window
	if start < 0 {
		start = 0
	}
	high := math.Inf(-1)
	low := math.Inf(1)
	for i := start; i < len(closes); i++ {
		if closes[i] > high {
			high = closes[i]
		}
		if closes[i] < low {
			low = closes[i]
		}
	}
	if high == low {
		return 0.5, nil
	}
	pos := (closes[len(closes)-1] - low) / (high - low)
	return clamp01(pos), nil
}

// TrendDeviation returns the last close's fractional deviation from its
// trailing simple moving average.
func TrendDeviation(closes []float64, window int) (float64, error) {
	ma, err := CalculateSMA(closes, window)
	if err != nil {
		return 0, err
	}
	if ma == 0 {
		return 0, errors.New("zero moving average")
	}
	return (closes[len(closes)-1] - ma) / ma, nil
}

// ApproximateSentiment derives a 0-1 euphoria stand-in from BTC price
// structure: position in the trailing one-year range, stretch above the
// long trend average, and medium-term momentum. It tracks the published
// score loosely and is only ever used with an explicit degraded tag.
func ApproximateSentiment(closes []float64) (float64, error) {
	if len(closes) < approxTrendWindow+1 {
		return 0, fmt.Errorf("sentiment approximation needs %d closes, have %d: %w",
			approxTrendWindow+1, len(closes), ErrInsufficientHistory)
	}
	rangePos, err := RangePosition(closes, approxRangeWindow)
	if err != nil {
		return 0, err
	}
	deviation, err := TrendDeviation(closes, approxTrendWindow)
	if err != nil {
		return 0, err
	}
	// A 100% stretch above trend maps to 1.0, trading at trend to 0.5.
	trend := clamp01(0.5 + deviation/2)
	rsi, err := CalculateRSI(closes, approxRSIPeriod)
	if err != nil {
		return 0, err
	}
	score := approxRangeWeight*rangePos + approxTrendWeight*trend + approxMomentumWeight*rsi/100
	return clamp01(score), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
