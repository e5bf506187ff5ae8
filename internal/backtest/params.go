package backtest

import (
	"fmt"
	"time"

	"github.com/newthinker/edgeval/internal/core"
)

// Params holds every tunable of a validation run. It is passed explicitly
// into the pipeline; nothing here is process-wide state.
type Params struct {
	HoldDays        int
	MonteCarloRuns  int
	BootstrapRuns   int
	ConfidenceLevel float64
	Seed            *uint64 // nil draws a fresh seed per run

	MinOutcomes     int
	MinHistoryBars  int
	InSampleRatio   float64
	StartingCapital float64

	// Verdict thresholds
	MaxPValue         float64
	MinStdDevs        float64
	MaxDegradationPct float64
	MinStableWinRate  float64 // in-sample win rate (%) below which degradation is flagged unstable
	FailOnUnstable    bool    // opt-in: an unstable degradation also fails the verdict

	Workers          int
	FetchConcurrency int
	FetchTimeout     time.Duration
}

// DefaultParams returns the standard validation settings
func DefaultParams() Params {
	return Params{
		HoldDays:          5,
		MonteCarloRuns:    1000,
		BootstrapRuns:     10000,
		ConfidenceLevel:   0.95,
		MinOutcomes:       10,
		MinHistoryBars:    30,
		InSampleRatio:     0.7,
		StartingCapital:   10000,
		MaxPValue:         0.05,
		MinStdDevs:        2.0,
		MaxDegradationPct: 20,
		MinStableWinRate:  10,
		Workers:           4,
		FetchConcurrency:  4,
		FetchTimeout:      30 * time.Second,
	}
}

// WithSeed returns a copy of p with a fixed random seed
func (p Params) WithSeed(seed uint64) Params {
	p.Seed = &seed
	return p
}

// Validate checks the parameters for values the statistics cannot use
func (p Params) Validate() error {
	invalid := func(format string, args ...any) error {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf(format, args...))
	}

	switch {
	case p.HoldDays < 1:
		return invalid("hold_days must be positive, got %d", p.HoldDays)
	case p.MonteCarloRuns < 1:
		return invalid("monte_carlo_runs must be positive, got %d", p.MonteCarloRuns)
	case p.BootstrapRuns < 1:
		return invalid("bootstrap_runs must be positive, got %d", p.BootstrapRuns)
	case p.ConfidenceLevel <= 0 || p.ConfidenceLevel >= 1:
		return invalid("confidence_level must be in (0, 1), got %f", p.ConfidenceLevel)
	case p.MinOutcomes < 2:
		return invalid("min_outcomes must be at least 2, got %d", p.MinOutcomes)
	case p.MinHistoryBars < 1:
		return invalid("min_history_bars must be positive, got %d", p.MinHistoryBars)
	case p.InSampleRatio <= 0 || p.InSampleRatio >= 1:
		return invalid("in_sample_ratio must be in (0, 1), got %f", p.InSampleRatio)
	case p.StartingCapital <= 0:
		return invalid("starting_capital must be positive, got %f", p.StartingCapital)
	case p.MaxPValue <= 0 || p.MaxPValue > 1:
		return invalid("max_p_value must be in (0, 1], got %f", p.MaxPValue)
	case p.MaxDegradationPct <= 0:
		return invalid("max_degradation_pct must be positive, got %f", p.MaxDegradationPct)
	case p.MinStableWinRate < 0 || p.MinStableWinRate >= 100:
		return invalid("min_stable_win_rate must be in [0, 100), got %f", p.MinStableWinRate)
	case p.Workers < 1:
		return invalid("workers must be positive, got %d", p.Workers)
	case p.FetchConcurrency < 1:
		return invalid("fetch_concurrency must be positive, got %d", p.FetchConcurrency)
	case p.FetchTimeout <= 0:
		return invalid("fetch_timeout must be positive, got %s", p.FetchTimeout)
	}
	return nil
}
