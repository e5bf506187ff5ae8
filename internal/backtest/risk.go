package backtest

import "math"

// ComputeRisk derives the equity curve and risk ratios from returns given in
// percent. Returns must be in chronological order: the curve compounds them
// sequentially starting from startingCapital.
func ComputeRisk(returns []float64, startingCapital float64) RiskMetrics {
	equity := equityCurve(returns, startingCapital)
	maxDD := maxDrawdown(equity)

	return RiskMetrics{
		EquityCurve:  equity,
		SharpeRatio:  sharpeRatio(returns),
		SortinoRatio: sortinoRatio(returns),
		MaxDrawdown:  maxDD,
		CalmarRatio:  math.Abs(safeDiv(mean(returns), maxDD)),
	}
}

// equityCurve has len(returns)+1 points, the first being startingCapital
func equityCurve(returns []float64, startingCapital float64) []float64 {
	equity := make([]float64, len(returns)+1)
	equity[0] = startingCapital
	for i, r := range returns {
		equity[i+1] = equity[i] * (1 + r/100)
	}
	return equity
}

// maxDrawdown is the largest peak-to-trough decline of the curve, in percent
func maxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}

	var maxDD float64
	peak := equity[0]
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			if dd := (peak - e) / peak * 100; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpeRatio is per-trade and unannualized, with a zero risk-free rate
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return safeDiv(mean(returns), popStd(returns))
}

// sortinoRatio divides by the deviation of losing returns only. Without a
// single loser the downside risk is nil and the ratio is +Inf.
func sortinoRatio(returns []float64) float64 {
	var losers []float64
	for _, r := range returns {
		if r < 0 {
			losers = append(losers, r)
		}
	}
	if len(losers) == 0 {
		if len(returns) == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return safeDiv(mean(returns), popStd(losers))
}
