package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/newthinker/edgeval/internal/collector"
	"github.com/newthinker/edgeval/internal/core"
	"github.com/newthinker/edgeval/internal/strategy"
	"go.uber.org/zap"
)

// Names of the verdict conditions reported in Report.FailedChecks
const (
	CheckPValue              = "p_value"
	CheckStdDevsAboveRandom  = "std_devs_above_random"
	CheckDegradation         = "degradation"
	CheckDegradationUnstable = "degradation_unstable"
)

// Recorder receives run-level measurements, typically for metrics export
type Recorder interface {
	RecordValidation(strategy, status string, seconds float64, outcomes int)
	RecordSymbolSkipped(reason string)
}

type nopRecorder struct{}

func (nopRecorder) RecordValidation(string, string, float64, int) {}
func (nopRecorder) RecordSymbolSkipped(string)                    {}

// Option configures a Backtester
type Option func(*Backtester)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(b *Backtester) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(b *Backtester) {
		if r != nil {
			b.recorder = r
		}
	}
}

// Backtester validates strategies against historical data
type Backtester struct {
	provider collector.Provider
	params   Params
	logger   *zap.Logger
	recorder Recorder
}

// New creates a new Backtester with the given price provider
func New(provider collector.Provider, params Params, opts ...Option) *Backtester {
	b := &Backtester{
		provider: provider,
		params:   params,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Params returns the run parameters
func (b *Backtester) Params() Params {
	return b.params
}

// Run samples signal outcomes for strat over symbols in [start, end] and
// validates them. Fewer than MinOutcomes outcomes ends the run in the
// insufficient-data state: the error matches core.ErrInsufficientSignals and
// no report is produced.
func (b *Backtester) Run(ctx context.Context, strat strategy.Strategy, symbols []string, start, end time.Time) (*Report, error) {
	if err := b.params.Validate(); err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no symbols to validate"))
	}
	if !end.After(start) {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("end date must be after start date"))
	}

	began := time.Now()
	seed := resolveSeed(b.params.Seed)
	log := b.logger.With(zap.String("strategy", strat.Name()), zap.Uint64("seed", seed))
	log.Info("validation started",
		zap.Int("symbols", len(symbols)),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("hold_days", b.params.HoldDays),
	)

	sampler := NewSampler(b.provider, b.params, b.logger, b.recorder)
	outcomes, stats, err := sampler.Sample(ctx, strat, symbols, start, end, seed)
	if err != nil {
		return nil, err
	}

	report, err := Analyze(ctx, strat.Name(), outcomes, b.params, seed)
	if err != nil {
		if errors.Is(err, core.ErrInsufficientSignals) {
			b.recorder.RecordValidation(strat.Name(), string(StatusInsufficientData), time.Since(began).Seconds(), len(outcomes))
			log.Warn("insufficient data for validation",
				zap.Int("outcomes", len(outcomes)),
				zap.Int("min_outcomes", b.params.MinOutcomes),
				zap.Int("symbols_skipped", stats.SymbolsSkipped),
				zap.Int("signals_dropped", stats.SignalsDropped),
			)
		}
		return nil, err
	}

	report.Symbols = append([]string(nil), symbols...)
	report.Start = start
	report.End = end
	report.SymbolsSkipped = stats.SymbolsSkipped
	report.SignalsDropped = stats.SignalsDropped

	b.recorder.RecordValidation(strat.Name(), string(report.Status), time.Since(began).Seconds(), report.TotalTrades)
	log.Info("validation finished",
		zap.Int("trades", report.TotalTrades),
		zap.Float64("win_rate", report.WinRate),
		zap.Float64("p_value", report.PValue),
		zap.Float64("std_devs_above_random", report.ActualVsRandomStdDevs),
		zap.Float64("degradation_pct", report.DegradationPct),
		zap.Bool("significant", report.IsStatisticallySignificant),
		zap.Duration("elapsed", time.Since(began)),
	)

	return report, nil
}

// Analyze runs the statistical stages over already-sampled outcomes and
// assembles the report. It refuses to compute anything on fewer than
// params.MinOutcomes outcomes.
func Analyze(ctx context.Context, strategyName string, outcomes []SignalOutcome, params Params, seed uint64) (*Report, error) {
	if len(outcomes) < params.MinOutcomes {
		return nil, core.WrapError(core.ErrInsufficientSignals,
			fmt.Errorf("%d outcomes, need at least %d", len(outcomes), params.MinOutcomes))
	}

	sorted := sortChronologically(outcomes)
	returns := make([]float64, len(sorted))
	randoms := make([]float64, len(sorted))
	for i, o := range sorted {
		returns[i] = o.ReturnPct
		randoms[i] = o.RandomReturnPct
	}

	rs := Resampler{Workers: params.Workers, Seed: seed}

	mc, err := MonteCarlo(ctx, sorted, params.MonteCarloRuns, rs)
	if err != nil {
		return nil, fmt.Errorf("monte carlo: %w", err)
	}
	ci, err := WinRateInterval(ctx, returns, params.BootstrapRuns, params.ConfidenceLevel, rs)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	split := SplitEvaluate(sorted, params.InSampleRatio, params.MinStableWinRate)
	risk := ComputeRisk(returns, params.StartingCapital)
	d := CohensD(returns, randoms)

	failed := params.failedChecks(mc, split)

	return &Report{
		StrategyName: strategyName,
		Status:       StatusValidated,

		TotalTrades:  len(sorted),
		WinRate:      winRate(returns),
		AvgGain:      mean(returns),
		SharpeRatio:  risk.SharpeRatio,
		SortinoRatio: Ratio(risk.SortinoRatio),
		MaxDrawdown:  risk.MaxDrawdown,
		CalmarRatio:  risk.CalmarRatio,

		PValue:                mc.PValue,
		MonteCarloMean:        mc.Mean,
		MonteCarloStd:         mc.Std,
		ActualVsRandomStdDevs: mc.StdDevsAboveRandom,

		ConfidenceInterval95: ci,
		EffectSize:           d,
		EffectSizeLabel:      EffectLabel(d),

		InSampleWinRate:     split.InSampleWinRate,
		OutSampleWinRate:    split.OutSampleWinRate,
		DegradationPct:      split.DegradationPct,
		DegradationUnstable: split.Unstable,

		IsStatisticallySignificant: len(failed) == 0,
		FailedChecks:               failed,

		AllReturns:  returns,
		EquityCurve: risk.EquityCurve,

		HoldDays:        params.HoldDays,
		Seed:            seed,
		MonteCarloRuns:  params.MonteCarloRuns,
		BootstrapRuns:   params.BootstrapRuns,
		ConfidenceLevel: params.ConfidenceLevel,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

// failedChecks applies the verdict: an edge is real only when the p-value,
// the distance from random and the out-of-sample degradation all pass.
// Unstable degradation is a diagnostic unless FailOnUnstable is set. The
// result is never nil so it serializes as [].
func (p Params) failedChecks(mc MonteCarloResult, split SplitResult) []string {
	failed := []string{}
	if !(mc.PValue < p.MaxPValue) {
		failed = append(failed, CheckPValue)
	}
	if !(mc.StdDevsAboveRandom > p.MinStdDevs) {
		failed = append(failed, CheckStdDevsAboveRandom)
	}
	if !(math.Abs(split.DegradationPct) < p.MaxDegradationPct) {
		failed = append(failed, CheckDegradation)
	}
	if p.FailOnUnstable && split.Unstable {
		failed = append(failed, CheckDegradationUnstable)
	}
	return failed
}
