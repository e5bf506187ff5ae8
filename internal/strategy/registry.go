package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/edgeval/internal/core"
	"go.uber.org/zap"
)

// Registry manages the signal generators available to validation runs
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	logger     *zap.Logger
}

// NewRegistry creates an empty strategy registry
func NewRegistry(logger ...*zap.Logger) *Registry {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Registry{
		strategies: make(map[string]Strategy),
		logger:     l,
	}
}

// Register adds a strategy to the registry, replacing any with the same name
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.strategies[s.Name()]; exists {
		r.logger.Warn("replacing registered strategy", zap.String("strategy", s.Name()))
	}
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name
func (r *Registry) Get(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	return s, ok
}

// Lookup is Get with a structured error for unknown names
func (r *Registry) Lookup(name string) (Strategy, error) {
	s, ok := r.Get(name)
	if !ok {
		return nil, core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("unknown strategy: %s", name))
	}
	return s, nil
}

// Names returns registered strategy names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Configure initializes every registered strategy that has an entry in cfgs.
// A strategy that fails to initialize is logged and left with its defaults.
func (r *Registry) Configure(cfgs map[string]Config) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, cfg := range cfgs {
		s, ok := r.strategies[name]
		if !ok {
			r.logger.Warn("config for unknown strategy", zap.String("strategy", name))
			continue
		}
		if err := s.Init(cfg); err != nil {
			r.logger.Warn("strategy init failed",
				zap.String("strategy", name),
				zap.Error(err),
			)
		}
	}
}
