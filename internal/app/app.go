// Package app wires configuration into the validation pipeline and its
// supporting services. The CLI and the HTTP service both go through it.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/edgeval/internal/backtest"
	"github.com/newthinker/edgeval/internal/collector"
	"github.com/newthinker/edgeval/internal/collector/csvfile"
	"github.com/newthinker/edgeval/internal/collector/yahoo"
	"github.com/newthinker/edgeval/internal/config"
	"github.com/newthinker/edgeval/internal/core"
	"github.com/newthinker/edgeval/internal/llm"
	"github.com/newthinker/edgeval/internal/llm/factory"
	"github.com/newthinker/edgeval/internal/meta"
	"github.com/newthinker/edgeval/internal/metrics"
	"github.com/newthinker/edgeval/internal/notifier"
	"github.com/newthinker/edgeval/internal/notifier/email"
	"github.com/newthinker/edgeval/internal/notifier/telegram"
	"github.com/newthinker/edgeval/internal/notifier/webhook"
	"github.com/newthinker/edgeval/internal/report"
	"github.com/newthinker/edgeval/internal/storage/archive"
	"github.com/newthinker/edgeval/internal/strategy"
	"github.com/newthinker/edgeval/internal/strategy/breakout"
	"github.com/newthinker/edgeval/internal/strategy/ma_crossover"
	"go.uber.org/zap"
)

// Request describes one validation run. Zero fields fall back to config.
type Request struct {
	Strategy string    `json:"strategy"`
	Symbols  []string  `json:"symbols"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Source   string    `json:"source,omitempty"`
	HoldDays int       `json:"hold_days,omitempty"`
	Seed     *uint64   `json:"seed,omitempty"`
}

// Option customizes an App
type Option func(*App)

// WithProvider registers an extra price provider, replacing any provider of
// the same name.
func WithProvider(p collector.Provider) Option {
	return func(a *App) { a.providers.Register(p) }
}

// WithStrategy registers an extra strategy
func WithStrategy(s strategy.Strategy) Option {
	return func(a *App) { a.strategies.Register(s) }
}

// WithLLM sets the provider used for reviews, overriding config
func WithLLM(p llm.Provider) Option {
	return func(a *App) { a.llm = p }
}

// WithStorage sets the report archive, overriding config
func WithStorage(s archive.Storage) Option {
	return func(a *App) { a.storage = s }
}

// WithNotifier adds a verdict channel. A channel already configured under
// the same name is kept.
func WithNotifier(n notifier.Notifier) Option {
	return func(a *App) {
		if err := a.notifiers.Register(n); err != nil {
			a.logger.Warn("notifier not added", zap.Error(err))
		}
	}
}

// App is the main application orchestrator
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *metrics.Registry
	providers  *collector.Registry
	strategies *strategy.Registry
	notifiers  *notifier.Registry
	llm        llm.Provider
	storage    archive.Storage

	mu      sync.Mutex
	reports *report.Store
}

// New creates a new App from cfg
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics.NewRegistry(),
		providers:  collector.NewRegistry(),
		strategies: strategy.NewRegistry(logger),
		notifiers:  notifier.NewRegistry(),
	}

	a.providers.Register(yahoo.New(yahoo.Options{
		BaseURL:        cfg.Collectors.Yahoo.BaseURL,
		Timeout:        cfg.Collectors.Yahoo.Timeout,
		RequestsPerSec: cfg.Collectors.Yahoo.RequestsPerSec,
	}))
	a.providers.Register(csvfile.New(cfg.Collectors.CSV.Path))

	a.strategies.Register(ma_crossover.New(20, 50))
	a.strategies.Register(breakout.New(20, 1.5))

	for name, nc := range cfg.Notifiers {
		if !nc.Enabled {
			continue
		}
		if err := a.notifiers.Register(newNotifier(name, nc)); err != nil {
			return nil, err
		}
	}

	for _, opt := range opts {
		opt(a)
	}

	strategyCfgs := make(map[string]strategy.Config, len(cfg.Strategies))
	for name, sc := range cfg.Strategies {
		strategyCfgs[name] = strategy.Config{Enabled: sc.Enabled, Params: sc.Params}
	}
	a.strategies.Configure(strategyCfgs)

	if a.llm == nil && cfg.LLM.Provider != "" {
		p, err := factory.New(cfg.LLM)
		if err != nil {
			return nil, err
		}
		a.llm = p
	}

	return a, nil
}

// newNotifier builds the channel named by a config key. Config.Validate has
// already rejected unknown names.
func newNotifier(name string, nc config.NotifierConfig) notifier.Notifier {
	switch name {
	case "telegram":
		return telegram.New(nc.BotToken, nc.ChatID)
	case "email":
		return email.New(nc.Host, nc.Port, nc.Username, nc.Password, nc.From, nc.To)
	default:
		return webhook.New(nc.URL, nc.Headers)
	}
}

// Config returns the loaded configuration
func (a *App) Config() *config.Config { return a.cfg }

// Logger returns the application logger
func (a *App) Logger() *zap.Logger { return a.logger }

// Metrics returns the metrics registry
func (a *App) Metrics() *metrics.Registry { return a.metrics }

// Strategies returns the strategy registry
func (a *App) Strategies() *strategy.Registry { return a.strategies }

// Providers returns the price provider registry
func (a *App) Providers() *collector.Registry { return a.providers }

// Notifiers returns the verdict channel registry
func (a *App) Notifiers() *notifier.Registry { return a.notifiers }

// Params converts the validation config into run parameters
func (a *App) Params() backtest.Params {
	v := a.cfg.Validation
	return backtest.Params{
		HoldDays:          v.HoldDays,
		MonteCarloRuns:    v.MonteCarloRuns,
		BootstrapRuns:     v.BootstrapRuns,
		ConfidenceLevel:   v.ConfidenceLevel,
		Seed:              v.RandomSeed,
		MinOutcomes:       v.MinOutcomes,
		MinHistoryBars:    v.MinHistoryBars,
		InSampleRatio:     v.InSampleRatio,
		StartingCapital:   v.StartingCapital,
		MaxPValue:         v.MaxPValue,
		MinStdDevs:        v.MinStdDevs,
		MaxDegradationPct: v.MaxDegradationPct,
		MinStableWinRate:  v.MinStableWinRate,
		FailOnUnstable:    v.FailOnUnstable,
		Workers:           v.Workers,
		FetchConcurrency:  v.FetchConcurrency,
		FetchTimeout:      v.FetchTimeout,
	}
}

// Validate runs one validation. It returns core.ErrInsufficientSignals with
// a nil report when too few outcomes were collected.
func (a *App) Validate(ctx context.Context, req Request) (*backtest.Report, error) {
	strat, err := a.strategies.Lookup(req.Strategy)
	if err != nil {
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = a.cfg.Collectors.Default
	}
	provider, err := a.providers.Lookup(source)
	if err != nil {
		return nil, err
	}

	params := a.Params()
	if req.HoldDays > 0 {
		params.HoldDays = req.HoldDays
	}
	if req.Seed != nil {
		params = params.WithSeed(*req.Seed)
	}

	bt := backtest.New(provider, params,
		backtest.WithLogger(a.logger),
		backtest.WithRecorder(a.metrics),
	)
	return bt.Run(ctx, strat, req.Symbols, req.Start, req.End)
}

// Reports returns the report store, opening the archive on first use
func (a *App) Reports() (*report.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.reports != nil {
		return a.reports, nil
	}
	if a.storage == nil {
		s, err := archive.Open(archive.Config{
			Type: a.cfg.Storage.Type,
			Path: a.cfg.Storage.Path,
			S3: archive.S3Config{
				Bucket:    a.cfg.Storage.S3.Bucket,
				Endpoint:  a.cfg.Storage.S3.Endpoint,
				Region:    a.cfg.Storage.S3.Region,
				AccessKey: a.cfg.Storage.S3.AccessKey,
				SecretKey: a.cfg.Storage.S3.SecretKey,
				Prefix:    a.cfg.Storage.S3.Prefix,
			},
		})
		if err != nil {
			return nil, err
		}
		a.storage = s
	}
	a.reports = report.NewStore(a.storage, a.logger, a.metrics)
	return a.reports, nil
}

// SaveReport archives r and returns its key
func (a *App) SaveReport(ctx context.Context, r *backtest.Report) (string, error) {
	store, err := a.Reports()
	if err != nil {
		return "", err
	}
	return store.Save(ctx, r)
}

// CanReview reports whether an LLM provider is configured
func (a *App) CanReview() bool {
	return a.llm != nil
}

// Review asks the configured LLM to critique r
func (a *App) Review(ctx context.Context, r *backtest.Report) (*meta.Review, error) {
	if a.llm == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no LLM provider configured"))
	}
	return meta.NewReviewer(a.llm, a.logger).Review(ctx, r)
}

// Notify sends the verdict of r to every configured channel. Delivery
// failures are logged and returned by channel name; they never fail a run.
func (a *App) Notify(ctx context.Context, r *backtest.Report, reportKey string) map[string]error {
	if a.notifiers.Len() == 0 {
		return nil
	}
	errs := a.notifiers.NotifyAll(ctx, notifier.NewVerdict(r, reportKey))
	for name, err := range errs {
		a.logger.Warn("verdict notification failed",
			zap.String("notifier", name),
			zap.String("strategy", r.StrategyName),
			zap.Error(err))
	}
	return errs
}
