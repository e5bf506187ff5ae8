package backtest

import (
	"context"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
)

// Independent random streams derived from one run seed.
const (
	streamMonteCarlo uint64 = 1 << 40
	streamBootstrap  uint64 = 2 << 40
	streamBaseline   uint64 = 3 << 40
)

// chunkSize is the number of draws sharing one generator. The chunk layout
// depends only on n, so a seed reproduces the same draws for any worker count.
const chunkSize = 256

// Resampler fans independent resampling draws out over a bounded pool of
// workers. Each chunk of draws owns its generator and its slice of the
// result, so no locking is involved.
type Resampler struct {
	Workers int
	Seed    uint64
}

// Run performs n draws and returns their results in draw order.
func (r Resampler) Run(ctx context.Context, stream uint64, n int, draw func(rng *rand.Rand) float64) ([]float64, error) {
	out := make([]float64, n)
	if n == 0 {
		return out, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Workers, 1))

	for lo := 0; lo < n; lo += chunkSize {
		hi := min(lo+chunkSize, n)
		chunk := uint64(lo / chunkSize)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := newRand(r.Seed, stream+chunk)
			for i := lo; i < hi; i++ {
				out[i] = draw(rng)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func newRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// resolveSeed returns the configured seed or a fresh one
func resolveSeed(seed *uint64) uint64 {
	if seed != nil {
		return *seed
	}
	return rand.Uint64()
}

// sampleMean draws len(pool) values from pool with replacement and returns their mean
func sampleMean(rng *rand.Rand, pool []float64) float64 {
	var sum float64
	for range pool {
		sum += pool[rng.IntN(len(pool))]
	}
	return sum / float64(len(pool))
}
