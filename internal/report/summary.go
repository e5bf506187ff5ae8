package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/newthinker/edgeval/internal/backtest"
)

// WriteSummary renders the headline numbers of r as an aligned table
func WriteSummary(w io.Writer, r *backtest.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	row := func(label, format string, args ...any) {
		fmt.Fprintf(tw, "%s\t%s\n", label, fmt.Sprintf(format, args...))
	}

	row("Strategy", "%s", r.StrategyName)
	if len(r.Symbols) > 0 {
		row("Symbols", "%s (%d skipped)", strings.Join(r.Symbols, ", "), r.SymbolsSkipped)
	}
	if !r.Start.IsZero() {
		row("Period", "%s .. %s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}
	row("Holding period", "%d days", r.HoldDays)
	row("Seed", "%d", r.Seed)
	fmt.Fprintln(tw)

	row("Trades", "%d (%d signals dropped)", r.TotalTrades, r.SignalsDropped)
	row("Win rate", "%.2f%%  %.0f%% CI [%.2f, %.2f]", r.WinRate, r.ConfidenceLevel*100,
		r.ConfidenceInterval95.Lower, r.ConfidenceInterval95.Upper)
	row("Average return", "%.3f%%", r.AvgGain)
	row("Sharpe", "%.3f", r.SharpeRatio)
	row("Sortino", "%.3f", float64(r.SortinoRatio))
	row("Max drawdown", "%.2f%%", r.MaxDrawdown)
	row("Calmar", "%.3f", r.CalmarRatio)
	fmt.Fprintln(tw)

	row("Random baseline", "%.3f%% +/- %.3f (%d runs)", r.MonteCarloMean, r.MonteCarloStd, r.MonteCarloRuns)
	row("p-value", "%.4f", r.PValue)
	row("Std devs above random", "%.2f", r.ActualVsRandomStdDevs)
	row("Effect size", "%.3f (%s)", r.EffectSize, r.EffectSizeLabel)
	row("In/out-of-sample", "%.2f%% / %.2f%%", r.InSampleWinRate, r.OutSampleWinRate)
	degradation := fmt.Sprintf("%.2f%%", r.DegradationPct)
	if r.DegradationUnstable {
		degradation += " (unstable)"
	}
	row("Degradation", "%s", degradation)
	fmt.Fprintln(tw)

	verdict := "EDGE CONFIRMED"
	if !r.IsStatisticallySignificant {
		verdict = "NO PROVEN EDGE (failed: " + strings.Join(r.FailedChecks, ", ") + ")"
	}
	row("Verdict", "%s", verdict)

	return tw.Flush()
}
