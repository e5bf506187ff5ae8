package breakout

import (
	"fmt"
	"time"

	"github.com/newthinker/edgeval/internal/core"
	"github.com/newthinker/edgeval/internal/indicator"
	"github.com/newthinker/edgeval/internal/strategy"
)

// Breakout fires when a bar closes above the highest close of the previous
// lookback bars on volume at least volumeFactor times its average.
type Breakout struct {
	lookback     int
	volumeFactor float64
}

// New creates a breakout strategy
func New(lookback int, volumeFactor float64) *Breakout {
	return &Breakout{lookback: lookback, volumeFactor: volumeFactor}
}

func (b *Breakout) Name() string {
	return "breakout"
}

func (b *Breakout) Description() string {
	return fmt.Sprintf("Close above %d-bar high on %.1fx volume", b.lookback, b.volumeFactor)
}

func (b *Breakout) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{
		PriceHistory: b.lookback + 1,
		Indicators:   []string{"highest", "sma"},
	}
}

func (b *Breakout) Init(cfg strategy.Config) error {
	lookback, factor := b.lookback, b.volumeFactor
	if v, ok := strategy.IntParam(cfg.Params, "lookback"); ok {
		lookback = v
	}
	if v, ok := strategy.FloatParam(cfg.Params, "volume_factor"); ok {
		factor = v
	}
	if lookback < 2 {
		return fmt.Errorf("lookback must be at least 2, got %d", lookback)
	}
	if factor < 0 {
		return fmt.Errorf("volume_factor cannot be negative, got %f", factor)
	}
	b.lookback, b.volumeFactor = lookback, factor
	return nil
}

// GenerateSignals returns the dates of fresh breakouts. A breakout is only
// reported on the first bar of a run so consecutive new highs do not stack.
func (b *Breakout) GenerateSignals(symbol string, history []core.OHLCV) ([]time.Time, error) {
	if len(history) <= b.lookback {
		return nil, nil
	}

	closes := make([]float64, len(history))
	volumes := make([]float64, len(history))
	for i, bar := range history {
		closes[i] = bar.Close
		volumes[i] = float64(bar.Volume)
	}

	// highs[j] and avgVol[j] cover bars j..j+lookback-1
	highs := indicator.Highest(closes, b.lookback)
	avgVol := indicator.SMA(volumes, b.lookback)

	var dates []time.Time
	inBreakout := false
	for k := b.lookback; k < len(history); k++ {
		prior := k - b.lookback
		broke := closes[k] > highs[prior] && volumes[k] >= avgVol[prior]*b.volumeFactor
		if broke && !inBreakout {
			dates = append(dates, history[k].Time)
		}
		inBreakout = broke
	}

	return dates, nil
}
