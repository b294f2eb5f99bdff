package calculator

import (
	"math"
	"sort"
)

// ExpandingPercentile ranks each value against everything seen up to and
// including itself, as a fraction in (0, 1]. Ties take the average of the
// ranks they straddle. NaN inputs rank as NaN and do not enter the pool.
// The pool is kept sorted so each step costs a binary search plus an
// insert instead of a full re-rank.
func ExpandingPercentile(values []float64) []float64 {
	out := make([]float64, len(values))
	pool := make([]float64, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		less := sort.SearchFloat64s(pool, v)
		upper := sort.Search(len(pool), func(j int) bool { return pool[j] > v })

		pool = append(pool, 0)
		copy(pool[upper+1:], pool[upper:])
		pool[upper] = v

		equal := upper - less + 1 // tied values, including v itself
		avgRank := float64(less) + (float64(equal)+1)/2
		out[i] = avgRank / float64(len(pool))
	}
	return out
}
