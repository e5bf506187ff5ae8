package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/edgeval/internal/backtest"
)

// Verdict is the digest of a finished validation that notifiers deliver
type Verdict struct {
	Strategy       string    `json:"strategy"`
	Symbols        []string  `json:"symbols"`
	Confirmed      bool      `json:"edge_confirmed"`
	FailedChecks   []string  `json:"failed_checks"`
	TotalTrades    int       `json:"total_trades"`
	WinRate        float64   `json:"win_rate"`
	PValue         float64   `json:"p_value"`
	StdDevs        float64   `json:"std_devs_above_random"`
	DegradationPct float64   `json:"degradation_pct"`
	EffectSize     string    `json:"effect_size"`
	ReportKey      string    `json:"report_key,omitempty"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// NewVerdict digests r. reportKey is empty when the report was not archived.
func NewVerdict(r *backtest.Report, reportKey string) Verdict {
	return Verdict{
		Strategy:       r.StrategyName,
		Symbols:        r.Symbols,
		Confirmed:      r.IsStatisticallySignificant,
		FailedChecks:   r.FailedChecks,
		TotalTrades:    r.TotalTrades,
		WinRate:        r.WinRate,
		PValue:         r.PValue,
		StdDevs:        r.ActualVsRandomStdDevs,
		DegradationPct: r.DegradationPct,
		EffectSize:     r.EffectSizeLabel,
		ReportKey:      reportKey,
		GeneratedAt:    r.GeneratedAt,
	}
}

// Headline is a one-line outcome, e.g. "ma_crossover: EDGE CONFIRMED"
func (v Verdict) Headline() string {
	if v.Confirmed {
		return v.Strategy + ": EDGE CONFIRMED"
	}
	if len(v.FailedChecks) == 0 {
		return v.Strategy + ": NO PROVEN EDGE"
	}
	return fmt.Sprintf("%s: NO PROVEN EDGE (failed: %s)", v.Strategy, strings.Join(v.FailedChecks, ", "))
}

// Notifier delivers validation verdicts to one channel
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Send delivers one verdict
	Send(ctx context.Context, v Verdict) error
}
