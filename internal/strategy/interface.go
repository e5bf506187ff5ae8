package strategy

import (
	"time"

	"github.com/newthinker/edgeval/internal/core"
)

// Config holds strategy configuration
type Config struct {
	Enabled bool
	Params  map[string]any
}

// DataRequirements specifies what data a strategy needs
type DataRequirements struct {
	PriceHistory int // Bars of lookback needed before the first signal can fire
	Indicators   []string
}

// Strategy generates candidate entry dates for one symbol. Implementations
// must be safe for concurrent use: the sampler calls GenerateSignals for
// several symbols at once.
type Strategy interface {
	Name() string
	Description() string
	RequiredData() DataRequirements
	Init(cfg Config) error
	GenerateSignals(symbol string, history []core.OHLCV) ([]time.Time, error)
}

// IntParam reads an integer parameter that may have been decoded from YAML
// or JSON as any numeric type.
func IntParam(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// FloatParam reads a float parameter that may have been decoded as an int.
func FloatParam(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
