package calculator

import (
	"math"
	"testing"
	"time"

	"CycleSentinel/internal/model"
)

func dailySeries(symbol string, start time.Time, prices []float64) model.PriceSeries {
	points := make([]model.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = model.PricePoint{Date: start.AddDate(0, 0, i), Price: p}
	}
	return model.PriceSeries{Symbol: symbol, Points: points}
}

func TestBuildPiCycle_InsufficientHistory(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	series := dailySeries("BTC-USD", start, make([]float64, PiLongWindow-1))
	if _, err := BuildPiCycle(series); err == nil {
		t.Fatal("expected error below the long window")
	}
}

func TestBuildPiCycle_FlatSeriesHasNoCrossovers(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]float64, 500)
	for i := range prices {
		prices[i] = 1000
	}
	pi, err := BuildPiCycle(dailySeries("BTC-USD", start, prices))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pi.Crossovers) != 0 {
		t.Errorf("flat series produced %d crossovers", len(pi.Crossovers))
	}
	// Both averages equal the price, so the ratio settles at 0.5.
	_, ratio, sma111, sma350x2 := pi.Latest()
	assertClose(t, ratio, 0.5, 1e-12)
	assertClose(t, sma111, 1000, 1e-9)
	assertClose(t, sma350x2, 2000, 1e-9)
}

func TestBuildPiCycle_DetectsSingleCrossover(t *testing.T) {
	// 350 days at 1.0 then a jump to 10.0: the fast average first reaches
	// the doubled slow average 34 days into the jump, at index 383.
	// Solving (111+9t)/111 >= 2(350+9t)/350 gives t >= 33.7.
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]float64, 450)
	for i := range prices {
		if i < 350 {
			prices[i] = 1
		} else {
			prices[i] = 10
		}
	}
	pi, err := BuildPiCycle(dailySeries("BTC-USD", start, prices))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pi.Crossovers) != 1 {
		t.Fatalf("expected exactly one crossover, got %d", len(pi.Crossovers))
	}
	want := start.AddDate(0, 0, 383)
	if !pi.Crossovers[0].Date.Equal(want) {
		t.Errorf("crossover at %s, want %s",
			pi.Crossovers[0].Date.Format("2006-01-02"), want.Format("2006-01-02"))
	}
	assertClose(t, pi.Crossovers[0].Price, 10, 1e-12)
}

func TestBuildPiCycle_WarmupIsUndefined(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]float64, PiLongWindow)
	for i := range prices {
		prices[i] = float64(i + 1)
	}
	pi, err := BuildPiCycle(dailySeries("BTC-USD", start, prices))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(pi.Ratio[PiLongWindow-2]) {
		t.Error("ratio should be undefined before the long window fills")
	}
	if math.IsNaN(pi.Ratio[PiLongWindow-1]) {
		t.Error("ratio should be defined once the long window fills")
	}
}

func TestPiCycleTail_DropsOldCrossovers(t *testing.T) {
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]float64, 450)
	for i := range prices {
		if i < 350 {
			prices[i] = 1
		} else {
			prices[i] = 10
		}
	}
	pi, _ := BuildPiCycle(dailySeries("BTC-USD", start, prices))
	tail := pi.Tail(30)
	if len(tail.Dates) != 30 {
		t.Fatalf("tail length %d, want 30", len(tail.Dates))
	}
	if len(tail.Crossovers) != 0 {
		t.Errorf("crossover at index 383 is outside the last 30 days, got %d", len(tail.Crossovers))
	}
}
