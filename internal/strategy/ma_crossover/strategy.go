package ma_crossover

import (
	"fmt"
	"time"

	"github.com/newthinker/edgeval/internal/core"
	"github.com/newthinker/edgeval/internal/indicator"
	"github.com/newthinker/edgeval/internal/strategy"
)

// MACrossover fires on golden crosses: the bar where the fast moving
// average closes above the slow one after being at or below it.
type MACrossover struct {
	fastPeriod int
	slowPeriod int
	maType     string
}

// New creates a new MA Crossover strategy using simple moving averages
func New(fastPeriod, slowPeriod int) *MACrossover {
	return &MACrossover{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
		maType:     "sma",
	}
}

func (m *MACrossover) Name() string {
	return "ma_crossover"
}

func (m *MACrossover) Description() string {
	return fmt.Sprintf("Golden cross of %s%d over %s%d", m.maType, m.fastPeriod, m.maType, m.slowPeriod)
}

func (m *MACrossover) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{
		PriceHistory: m.slowPeriod + 10, // Extra buffer
		Indicators:   []string{m.maType},
	}
}

func (m *MACrossover) Init(cfg strategy.Config) error {
	fast, slow := m.fastPeriod, m.slowPeriod
	if v, ok := strategy.IntParam(cfg.Params, "fast_period"); ok {
		fast = v
	}
	if v, ok := strategy.IntParam(cfg.Params, "slow_period"); ok {
		slow = v
	}
	if fast <= 0 || slow <= fast {
		return fmt.Errorf("invalid periods: fast=%d slow=%d", fast, slow)
	}

	maType := m.maType
	if v, ok := cfg.Params["ma_type"].(string); ok {
		if v != "sma" && v != "ema" {
			return fmt.Errorf("unsupported ma_type %q", v)
		}
		maType = v
	}

	m.fastPeriod, m.slowPeriod, m.maType = fast, slow, maType
	return nil
}

func (m *MACrossover) average(prices []float64, period int) []float64 {
	if m.maType == "ema" {
		return indicator.EMA(prices, period)
	}
	return indicator.SMA(prices, period)
}

// GenerateSignals returns the date of every golden cross in history
func (m *MACrossover) GenerateSignals(symbol string, history []core.OHLCV) ([]time.Time, error) {
	if len(history) <= m.slowPeriod {
		return nil, nil // Not enough data
	}

	prices := make([]float64, len(history))
	for i, bar := range history {
		prices[i] = bar.Close
	}

	fastMA := m.average(prices, m.fastPeriod)
	slowMA := m.average(prices, m.slowPeriod)

	// fastMA[k-fast+1] and slowMA[k-slow+1] both describe bar k
	var dates []time.Time
	for k := m.slowPeriod; k < len(history); k++ {
		currFast := fastMA[k-m.fastPeriod+1]
		prevFast := fastMA[k-m.fastPeriod]
		currSlow := slowMA[k-m.slowPeriod+1]
		prevSlow := slowMA[k-m.slowPeriod]

		if prevFast <= prevSlow && currFast > currSlow {
			dates = append(dates, history[k].Time)
		}
	}

	return dates, nil
}
