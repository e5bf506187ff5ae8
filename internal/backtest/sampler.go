package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/newthinker/edgeval/internal/collector"
	"github.com/newthinker/edgeval/internal/core"
	"github.com/newthinker/edgeval/internal/strategy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Reasons a symbol contributes no outcomes
const (
	SkipFetchFailed    = "fetch_failed"
	SkipShortHistory   = "short_history"
	SkipStrategyFailed = "strategy_failed"
	SkipNoSignals      = "no_signals"
	SkipNoBaseline     = "no_baseline_range"
)

// maxBaselineDraws bounds the redraws spent skipping non-positive closes
// when picking a random entry bar
const maxBaselineDraws = 32

// Sampler turns strategy signals into forward-return outcomes, each paired
// with a random-entry return from the same symbol's history.
type Sampler struct {
	provider collector.Provider
	params   Params
	logger   *zap.Logger
	recorder Recorder
}

// NewSampler creates a sampler reading history from provider
func NewSampler(provider collector.Provider, params Params, logger *zap.Logger, recorder Recorder) *Sampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Sampler{
		provider: provider,
		params:   params,
		logger:   logger,
		recorder: recorder,
	}
}

type symbolResult struct {
	outcomes []SignalOutcome
	found    int
	dropped  int
	skip     string
}

// Sample collects outcomes for every symbol, fetching concurrently. Per-symbol
// failures are logged and skipped; only context cancellation is returned as
// an error. Outcomes come back in chronological order.
func (s *Sampler) Sample(ctx context.Context, strat strategy.Strategy, symbols []string, start, end time.Time, seed uint64) ([]SignalOutcome, SampleStats, error) {
	results := make([]symbolResult, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.params.FetchConcurrency)
	for i, symbol := range symbols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.sampleSymbol(gctx, strat, symbol, start, end, newRand(seed, streamBaseline+uint64(i)).IntN)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, SampleStats{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, SampleStats{}, err
	}

	stats := SampleStats{SymbolsRequested: len(symbols)}
	var outcomes []SignalOutcome
	for i, r := range results {
		stats.SignalsFound += r.found
		stats.SignalsDropped += r.dropped
		if r.skip != "" {
			stats.SymbolsSkipped++
			s.recorder.RecordSymbolSkipped(r.skip)
			s.logger.Debug("symbol skipped",
				zap.String("symbol", symbols[i]),
				zap.String("reason", r.skip),
			)
			continue
		}
		outcomes = append(outcomes, r.outcomes...)
	}

	return sortChronologically(outcomes), stats, nil
}

// lookbackDays converts the bars a strategy needs before its first signal
// into calendar days, allowing for weekends and holidays.
func (s *Sampler) lookbackDays(strat strategy.Strategy) int {
	bars := max(s.params.HoldDays, strat.RequiredData().PriceHistory, s.params.MinHistoryBars)
	return bars * 2
}

func (s *Sampler) sampleSymbol(ctx context.Context, strat strategy.Strategy, symbol string, start, end time.Time, intN func(int) int) symbolResult {
	log := s.logger.With(zap.String("symbol", symbol), zap.String("strategy", strat.Name()))
	hold := s.params.HoldDays

	fetchCtx, cancel := context.WithTimeout(ctx, s.params.FetchTimeout)
	history, err := s.provider.FetchHistory(fetchCtx, symbol, start.AddDate(0, 0, -s.lookbackDays(strat)), end)
	cancel()
	if err != nil {
		log.Warn("price history unavailable", zap.Error(err))
		return symbolResult{skip: SkipFetchFailed}
	}
	if len(history) < s.params.MinHistoryBars {
		log.Warn("price history too short",
			zap.Error(core.WrapError(core.ErrNoData, fmt.Errorf("%d bars, need %d", len(history), s.params.MinHistoryBars))),
		)
		return symbolResult{skip: SkipShortHistory}
	}

	dates, err := strat.GenerateSignals(symbol, history)
	if err != nil {
		log.Warn("signal generation failed", zap.Error(core.WrapError(core.ErrStrategyFailed, err)))
		return symbolResult{skip: SkipStrategyFailed}
	}
	dates = signalsInWindow(dates, start, end)
	if len(dates) == 0 {
		return symbolResult{skip: SkipNoSignals}
	}

	// random entries need MinHistoryBars of lead-in and a full holding period after
	lo, hi := s.params.MinHistoryBars, len(history)-hold
	if hi <= lo {
		log.Warn("history leaves no room for random entries",
			zap.Int("bars", len(history)),
			zap.Int("hold_days", hold),
		)
		return symbolResult{skip: SkipNoBaseline}
	}

	index := make(map[string]int, len(history))
	for i, bar := range history {
		index[core.DateKey(bar.Time)] = i
	}

	res := symbolResult{found: len(dates)}
	for _, date := range dates {
		i, ok := index[core.DateKey(date)]
		if !ok || i+hold >= len(history) {
			res.dropped++
			continue
		}
		entry, exit := history[i].Close, history[i+hold].Close
		if entry <= 0 {
			res.dropped++
			continue
		}

		j, ok := drawBaseline(history, lo, hi, intN)
		if !ok {
			res.dropped++
			continue
		}
		randEntry, randExit := history[j].Close, history[j+hold].Close

		res.outcomes = append(res.outcomes, SignalOutcome{
			Signal:          core.Signal{Symbol: symbol, Date: history[i].Time},
			EntryPrice:      entry,
			ExitPrice:       exit,
			ReturnPct:       (exit - entry) / entry * 100,
			RandomReturnPct: (randExit - randEntry) / randEntry * 100,
		})
	}

	if res.dropped > 0 {
		log.Debug("signals dropped", zap.Int("dropped", res.dropped), zap.Int("kept", len(res.outcomes)))
	}
	return res
}

// drawBaseline picks a random entry bar in [lo, hi) with a positive close
func drawBaseline(history []core.OHLCV, lo, hi int, intN func(int) int) (int, bool) {
	for range maxBaselineDraws {
		j := lo + intN(hi-lo)
		if history[j].Close > 0 {
			return j, true
		}
	}
	return 0, false
}

// signalsInWindow keeps distinct signal days within [start, end], sorted
func signalsInWindow(dates []time.Time, start, end time.Time) []time.Time {
	from, to := core.DateKey(start), core.DateKey(end)
	seen := make(map[string]struct{}, len(dates))
	var out []time.Time
	for _, d := range dates {
		key := core.DateKey(d)
		if key < from || key > to {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
