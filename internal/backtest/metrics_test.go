package backtest

import (
	"math"
	"testing"
)

func TestMaxDrawdown_WorstPeakToTrough(t *testing.T) {
	got := maxDrawdown([]float64{1, 1.2, 0.9, 1.5})
	want := 0.9/1.2 - 1
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("drawdown %v, want %v", got, want)
	}
}

func TestMaxDrawdown_MonotonicCurveIsZero(t *testing.T) {
	if got := maxDrawdown([]float64{1, 1.1, 1.3, 2}); got != 0 {
		t.Errorf("rising curve reported drawdown %v", got)
	}
}

func TestSharpe_ZeroVarianceUnavailable(t *testing.T) {
	if _, ok := sharpe([]float64{0.1, 0.1, 0.1}); ok {
		t.Error("constant returns have no defined Sharpe ratio")
	}
	if _, ok := sharpe([]float64{0.1}); ok {
		t.Error("a single return has no defined Sharpe ratio")
	}
}

func TestSharpe_AnnualizedSampleDeviation(t *testing.T) {
	// mean 0.02, sample deviation sqrt(0.0002).
	got, ok := sharpe([]float64{0.01, 0.03})
	if !ok {
		t.Fatal("expected a defined Sharpe ratio")
	}
	want := 0.02 / math.Sqrt(0.0002) * math.Sqrt(252)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("sharpe %v, want %v", got, want)
	}
}

func TestTimeInMarket_FractionOfLongDays(t *testing.T) {
	if got := timeInMarket([]int{0, 1, 1, 0}); got != 0.5 {
		t.Errorf("time in market %v, want 0.5", got)
	}
	if got := timeInMarket(nil); got != 0 {
		t.Errorf("empty position reported %v", got)
	}
}
