// Package adjust implements the package adjustment: a bundle of assets trades
// for less than the sum of its parts.
//
// Values are ranked descending and the i-th ranked value (0-indexed) is
// weighted by decay^i, so with decay 0.93 the second piece counts 93%, the
// third 86.5%, and so on.
package adjust

import (
	"math"
	"sort"

	"github.com/dynastycalc/trade-engine/internal/model"
)

// Adjust returns the rank-decayed total of values. decay must already be
// clamped with model.ClampDecay. An empty list adjusts to 0.
func Adjust(values []int, decay float64) int {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	var sum, weight float64 = 0, 1
	for _, v := range sorted {
		sum += float64(v) * weight
		weight *= decay
	}
	return int(math.Round(sum))
}

// Sum is the unadjusted total.
func Sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

// Total applies the package adjustment when the league enables it and
// returns the plain sum otherwise.
func Total(values []int, s model.LeagueSettings) int {
	if !s.KTCAdjustment {
		return Sum(values)
	}
	return Adjust(values, model.ClampDecay(s.KTCDecay))
}
