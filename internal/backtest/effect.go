package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// CohensD is the standardized mean difference between a and b using the
// average of the two population variances:
//
//	|d| < 0.2 negligible, 0.2-0.5 small, 0.5-0.8 medium, > 0.8 large
func CohensD(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var va, vb float64
	if len(a) > 1 {
		va = stat.PopVariance(a, nil)
	}
	if len(b) > 1 {
		vb = stat.PopVariance(b, nil)
	}
	pooled := math.Sqrt((va + vb) / 2)
	return safeDiv(mean(a)-mean(b), pooled)
}

// EffectLabel names the conventional band an effect size falls in
func EffectLabel(d float64) string {
	switch d = math.Abs(d); {
	case d < 0.2:
		return "negligible"
	case d < 0.5:
		return "small"
	case d < 0.8:
		return "medium"
	default:
		return "large"
	}
}
