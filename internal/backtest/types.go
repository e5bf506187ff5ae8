package backtest

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/newthinker/edgeval/internal/core"
)

// Status is the state of a validation run
type Status string

const (
	StatusCollecting       Status = "collecting"
	StatusInsufficientData Status = "insufficient_data"
	StatusValidated        Status = "validated"
)

// SignalOutcome is the realized forward return of one signal alongside a
// random-entry return drawn from the same instrument's history.
type SignalOutcome struct {
	Signal          core.Signal `json:"signal"`
	EntryPrice      float64     `json:"entry_price"`
	ExitPrice       float64     `json:"exit_price"`
	ReturnPct       float64     `json:"return_pct"`
	RandomReturnPct float64     `json:"random_return_pct"`
}

// IsWin returns true if the signal was profitable
func (o SignalOutcome) IsWin() bool {
	return o.ReturnPct > 0
}

// SampleStats describes what the sampler kept and discarded
type SampleStats struct {
	SymbolsRequested int
	SymbolsSkipped   int
	SignalsFound     int
	SignalsDropped   int
}

// RiskMetrics holds the equity curve and risk-adjusted ratios of a return sequence
type RiskMetrics struct {
	EquityCurve  []float64
	SharpeRatio  float64
	SortinoRatio float64 // +Inf when there are no losing returns
	MaxDrawdown  float64 // percent
	CalmarRatio  float64
}

// MonteCarloResult compares the observed mean against the null distribution
// of random-entry means.
type MonteCarloResult struct {
	Mean               float64
	Std                float64
	PValue             float64
	StdDevsAboveRandom float64
}

// SplitResult holds the chronological in-sample/out-of-sample comparison
type SplitResult struct {
	InSampleCount    int
	OutSampleCount   int
	InSampleWinRate  float64
	OutSampleWinRate float64
	DegradationPct   float64
	Unstable         bool // in-sample base too small for a meaningful percentage
}

// Interval is a two-sided confidence interval, serialized as [lower, upper]
type Interval struct {
	Lower float64
	Upper float64
}

// Contains reports whether v lies within the interval, bounds included
func (i Interval) Contains(v float64) bool {
	return v >= i.Lower && v <= i.Upper
}

func (i Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{i.Lower, i.Upper})
}

func (i *Interval) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	i.Lower, i.Upper = pair[0], pair[1]
	return nil
}

// Ratio is a float that may be infinite. JSON numbers cannot carry
// infinities, so they are written as the strings "+Inf" and "-Inf".
type Ratio float64

func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	case math.IsNaN(f):
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "+Inf", "Inf":
			*r = Ratio(math.Inf(1))
		case "-Inf":
			*r = Ratio(math.Inf(-1))
		default:
			return fmt.Errorf("invalid ratio %q", s)
		}
		return nil
	}
	if string(data) == "null" {
		*r = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}

// Report is the immutable result of one validation run. Win rates, returns,
// drawdown and degradation are percentages.
type Report struct {
	StrategyName string `json:"strategy_name"`
	Status       Status `json:"status"`

	TotalTrades  int     `json:"total_trades"`
	WinRate      float64 `json:"win_rate"`
	AvgGain      float64 `json:"avg_gain"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio Ratio   `json:"sortino_ratio"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	CalmarRatio  float64 `json:"calmar_ratio"`

	PValue                float64 `json:"p_value"`
	MonteCarloMean        float64 `json:"monte_carlo_mean"`
	MonteCarloStd         float64 `json:"monte_carlo_std"`
	ActualVsRandomStdDevs float64 `json:"actual_vs_random_std_devs"`

	ConfidenceInterval95 Interval `json:"confidence_interval_95"`
	EffectSize           float64  `json:"effect_size"`
	EffectSizeLabel      string   `json:"effect_size_label"`

	InSampleWinRate     float64 `json:"in_sample_win_rate"`
	OutSampleWinRate    float64 `json:"out_sample_win_rate"`
	DegradationPct      float64 `json:"degradation_pct"`
	DegradationUnstable bool    `json:"degradation_unstable"`

	IsStatisticallySignificant bool     `json:"is_statistically_significant"`
	FailedChecks               []string `json:"failed_checks"`

	AllReturns  []float64 `json:"all_returns"`
	EquityCurve []float64 `json:"equity_curve"`

	// Run metadata
	Symbols         []string  `json:"symbols,omitempty"`
	Start           time.Time `json:"start,omitzero"`
	End             time.Time `json:"end,omitzero"`
	HoldDays        int       `json:"hold_days"`
	Seed            uint64    `json:"seed"`
	MonteCarloRuns  int       `json:"monte_carlo_runs"`
	BootstrapRuns   int       `json:"bootstrap_runs"`
	ConfidenceLevel float64   `json:"confidence_level"`
	SymbolsSkipped  int       `json:"tickers_skipped"`
	SignalsDropped  int       `json:"signals_dropped"`
	GeneratedAt     time.Time `json:"generated_at"`
}
