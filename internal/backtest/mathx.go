package backtest

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// epsilon is the magnitude below which a denominator counts as zero.
// Sums of identical non-representable values leave residues around 1e-16
// that would otherwise turn a degenerate ratio into a huge one.
const epsilon = 1e-12

// safeDiv is the single zero-denominator policy shared by every ratio in
// the package: a zero, near-zero or NaN denominator yields 0.
func safeDiv(num, den float64) float64 {
	if math.IsNaN(den) || math.Abs(den) < epsilon {
		return 0
	}
	return num / den
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// popStd is the population standard deviation (divides by n).
func popStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.PopStdDev(xs, nil)
}

// winRate returns the percentage of strictly positive values.
func winRate(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	wins := 0
	for _, x := range xs {
		if x > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(xs)) * 100
}

// percentile returns the q-th quantile (0..1) of xs, interpolating linearly
// between the two closest ranks. xs is sorted in place.
func percentile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sort.Float64s(xs)

	pos := q * float64(len(xs)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(xs) {
		hi = len(xs) - 1
	}
	return xs[lo] + (xs[hi]-xs[lo])*(pos-float64(lo))
}
