package backtest

import (
	"context"
	"math/rand/v2"
)

// WinRateInterval estimates a confidence interval for the true win rate by
// resampling returns with replacement and taking the alpha/2 and 1-alpha/2
// percentiles of the resampled win rates. Bounds are percentages.
func WinRateInterval(ctx context.Context, returns []float64, runs int, confidence float64, rs Resampler) (Interval, error) {
	if len(returns) == 0 || runs <= 0 {
		return Interval{}, nil
	}

	rates, err := rs.Run(ctx, streamBootstrap, runs, func(rng *rand.Rand) float64 {
		wins := 0
		for range returns {
			if returns[rng.IntN(len(returns))] > 0 {
				wins++
			}
		}
		return float64(wins) / float64(len(returns)) * 100
	})
	if err != nil {
		return Interval{}, err
	}

	alpha := 1 - confidence
	return Interval{
		Lower: percentile(rates, alpha/2),
		Upper: percentile(rates, 1-alpha/2),
	}, nil
}
