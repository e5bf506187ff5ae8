package backtest

import (
	"context"
	"math/rand/v2"
)

// MonteCarlo builds a null distribution by repeatedly drawing len(outcomes)
// random-entry returns with replacement and averaging them. It answers: had
// we entered at random on the same instruments, how often would the average
// have matched or beaten the strategy's?
//
// PValue is one-sided: the fraction of null means >= the observed mean.
func MonteCarlo(ctx context.Context, outcomes []SignalOutcome, runs int, rs Resampler) (MonteCarloResult, error) {
	if len(outcomes) == 0 || runs <= 0 {
		return MonteCarloResult{PValue: 1}, nil
	}

	returns := make([]float64, len(outcomes))
	pool := make([]float64, len(outcomes))
	for i, o := range outcomes {
		returns[i] = o.ReturnPct
		pool[i] = o.RandomReturnPct
	}
	observed := mean(returns)

	null, err := rs.Run(ctx, streamMonteCarlo, runs, func(rng *rand.Rand) float64 {
		return sampleMean(rng, pool)
	})
	if err != nil {
		return MonteCarloResult{}, err
	}

	atLeast := 0
	for _, m := range null {
		if m >= observed {
			atLeast++
		}
	}

	nullMean := mean(null)
	nullStd := popStd(null)

	return MonteCarloResult{
		Mean:               nullMean,
		Std:                nullStd,
		PValue:             float64(atLeast) / float64(runs),
		StdDevsAboveRandom: safeDiv(observed-nullMean, nullStd),
	}, nil
}
