package backtest

import (
	"math"
	"sort"
)

// sortChronologically returns a copy of outcomes ordered by signal date,
// ties broken by symbol so the order does not depend on fetch scheduling.
func sortChronologically(outcomes []SignalOutcome) []SignalOutcome {
	sorted := make([]SignalOutcome, len(outcomes))
	copy(sorted, outcomes)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Signal, sorted[j].Signal
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Symbol < b.Symbol
	})
	return sorted
}

// SplitEvaluate partitions outcomes chronologically into the first ratio
// share (in-sample) and the remainder (out-of-sample) and compares their win
// rates. A strategy that collapses out of sample is overfit no matter how
// good it looked in sample.
//
// DegradationPct is relative to the in-sample win rate and is 0 when that
// rate is 0. Unstable is set when the in-sample win rate is below
// minStableWinRate or either segment is empty, since the percentage is then
// dominated by a tiny denominator.
func SplitEvaluate(outcomes []SignalOutcome, ratio, minStableWinRate float64) SplitResult {
	sorted := sortChronologically(outcomes)

	cut := int(math.Floor(float64(len(sorted))*ratio + 1e-9))
	inSample := make([]float64, 0, cut)
	outSample := make([]float64, 0, len(sorted)-cut)
	for i, o := range sorted {
		if i < cut {
			inSample = append(inSample, o.ReturnPct)
		} else {
			outSample = append(outSample, o.ReturnPct)
		}
	}

	inRate := winRate(inSample)
	outRate := winRate(outSample)

	return SplitResult{
		InSampleCount:    len(inSample),
		OutSampleCount:   len(outSample),
		InSampleWinRate:  inRate,
		OutSampleWinRate: outRate,
		DegradationPct:   safeDiv(outRate-inRate, inRate) * 100,
		Unstable:         len(inSample) == 0 || len(outSample) == 0 || inRate < minStableWinRate,
	}
}
