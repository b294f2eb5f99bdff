package calculator

import (
	"math"
	"testing"
)

func TestExpandingPercentile_Monotonic(t *testing.T) {
	// A strictly rising series is always at its own maximum.
	got := ExpandingPercentile([]float64{1, 2, 3, 4})
	for i, v := range got {
		if v != 1.0 {
			t.Errorf("position %d: got %v, want 1.0", i, v)
		}
	}
}

func TestExpandingPercentile_Decreasing(t *testing.T) {
	got := ExpandingPercentile([]float64{3, 2, 1})
	assertClose(t, got[0], 1.0, 1e-12)
	assertClose(t, got[1], 0.5, 1e-12)
	assertClose(t, got[2], 1.0/3.0, 1e-12)
}

func TestExpandingPercentile_Ties(t *testing.T) {
	// Tied values take the average of the ranks they straddle: the second
	// 5 ranks (1+2)/2 = 1.5 out of 2.
	got := ExpandingPercentile([]float64{5, 5})
	assertClose(t, got[0], 1.0, 1e-12)
	assertClose(t, got[1], 0.75, 1e-12)
}

func TestExpandingPercentile_TiesInLargerPool(t *testing.T) {
	got := ExpandingPercentile([]float64{1, 3, 2, 2})
	// Pool at the last step is [1 2 2 3]; the tied 2s rank (2+3)/2 = 2.5.
	assertClose(t, got[3], 2.5/4.0, 1e-12)
}

func TestExpandingPercentile_SkipsUndefined(t *testing.T) {
	got := ExpandingPercentile([]float64{math.NaN(), 2, math.NaN(), 1})
	if !math.IsNaN(got[0]) || !math.IsNaN(got[2]) {
		t.Errorf("undefined inputs should stay undefined, got %v, %v", got[0], got[2])
	}
	assertClose(t, got[1], 1.0, 1e-12)
	// The pool holds only the defined values [1 2].
	assertClose(t, got[3], 0.5, 1e-12)
}
