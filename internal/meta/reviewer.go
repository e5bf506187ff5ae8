// Package meta asks a language model for a second opinion on a finished
// validation report. The statistics decide the verdict; the review only
// explains it and points at what to examine next.
package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/newthinker/edgeval/internal/backtest"
	"github.com/newthinker/edgeval/internal/core"
	"github.com/newthinker/edgeval/internal/llm"
	"go.uber.org/zap"
)

// Recommendations a review may carry
const (
	RecommendAccept      = "accept"
	RecommendInvestigate = "investigate"
	RecommendReject      = "reject"
)

// Review is the model's critique of one report
type Review struct {
	Summary        string   `json:"summary"`
	Concerns       []string `json:"concerns"`
	Recommendation string   `json:"recommendation"`
	Provider       string   `json:"provider"`
}

// Reviewer critiques reports using an LLM provider.
type Reviewer struct {
	llm    llm.Provider
	logger *zap.Logger
}

// NewReviewer creates a reviewer backed by provider
func NewReviewer(provider llm.Provider, logger *zap.Logger) *Reviewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reviewer{llm: provider, logger: logger}
}

// Review asks the model to critique r. A reply that is not valid JSON is
// kept as the summary with an "investigate" recommendation.
func (rv *Reviewer) Review(ctx context.Context, r *backtest.Report) (*Review, error) {
	if r == nil {
		return nil, core.WrapError(core.ErrNoData, errors.New("no report to review"))
	}

	resp, err := rv.llm.Complete(ctx, llm.Prompt{
		System:      reviewerSystemPrompt,
		User:        buildPrompt(r),
		MaxTokens:   1024,
		Temperature: 0.2,
		JSON:        true,
	})
	if err != nil {
		return nil, core.WrapError(core.ErrLLMFailed, err)
	}

	rv.logger.Debug("review received",
		zap.String("provider", rv.llm.Name()),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
	)

	review, ok := parseReview(resp.Text)
	if !ok {
		rv.logger.Warn("review is not valid JSON, keeping raw text", zap.String("provider", rv.llm.Name()))
		review = &Review{
			Summary:        strings.TrimSpace(resp.Text),
			Recommendation: RecommendInvestigate,
		}
	}
	review.Provider = rv.llm.Name()
	if review.Concerns == nil {
		review.Concerns = []string{}
	}
	return review, nil
}

// parseReview extracts the outermost JSON object, tolerating code fences
// or prose around it.
func parseReview(text string) (*Review, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var review Review
	if err := json.Unmarshal([]byte(text[start:end+1]), &review); err != nil {
		return nil, false
	}
	if review.Summary == "" {
		return nil, false
	}

	switch rec := strings.ToLower(strings.TrimSpace(review.Recommendation)); rec {
	case RecommendAccept, RecommendReject:
		review.Recommendation = rec
	default:
		review.Recommendation = RecommendInvestigate
	}
	return &review, true
}

func buildPrompt(r *backtest.Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Strategy: %s\n\n", r.StrategyName)
	if len(r.Symbols) > 0 {
		fmt.Fprintf(&sb, "- Universe: %s (%d skipped)\n", strings.Join(r.Symbols, ", "), r.SymbolsSkipped)
	}
	if !r.Start.IsZero() {
		fmt.Fprintf(&sb, "- Period: %s to %s\n", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}
	fmt.Fprintf(&sb, "- Holding period: %d bars\n\n", r.HoldDays)

	sb.WriteString("## Results:\n")
	fmt.Fprintf(&sb, "- Trades: %d\n", r.TotalTrades)
	fmt.Fprintf(&sb, "- Win rate: %.2f%% (%.0f%% CI %.2f to %.2f)\n",
		r.WinRate, r.ConfidenceLevel*100, r.ConfidenceInterval95.Lower, r.ConfidenceInterval95.Upper)
	fmt.Fprintf(&sb, "- Average return per trade: %.3f%%\n", r.AvgGain)
	fmt.Fprintf(&sb, "- Sharpe %.3f, Sortino %.3f, Calmar %.3f, max drawdown %.2f%%\n",
		r.SharpeRatio, float64(r.SortinoRatio), r.CalmarRatio, r.MaxDrawdown)
	fmt.Fprintf(&sb, "- Random-entry baseline: mean %.3f%%, std %.3f\n", r.MonteCarloMean, r.MonteCarloStd)
	fmt.Fprintf(&sb, "- p-value %.4f, %.2f std devs above random, effect size %.3f (%s)\n",
		r.PValue, r.ActualVsRandomStdDevs, r.EffectSize, r.EffectSizeLabel)
	fmt.Fprintf(&sb, "- In-sample win rate %.2f%%, out-of-sample %.2f%%, degradation %.2f%%",
		r.InSampleWinRate, r.OutSampleWinRate, r.DegradationPct)
	if r.DegradationUnstable {
		sb.WriteString(" (unstable: tiny in-sample base)")
	}
	sb.WriteString("\n")

	if r.IsStatisticallySignificant {
		sb.WriteString("- Verdict: edge confirmed\n\n")
	} else {
		fmt.Fprintf(&sb, "- Verdict: no proven edge, failed checks: %s\n\n", strings.Join(r.FailedChecks, ", "))
	}

	sb.WriteString("## Task:\n")
	sb.WriteString("Critique this validation. Point out sample-size, regime or overfitting risks the numbers suggest.\n")
	sb.WriteString("Respond with JSON containing: summary, concerns (list of strings), recommendation (accept/investigate/reject).\n")

	return sb.String()
}

const reviewerSystemPrompt = `You are a skeptical quantitative reviewer. You receive the statistical validation of a trading strategy against random entries on the same instruments.

Consider:
1. Sample size - few trades make every statistic fragile
2. Out-of-sample stability - a collapse after the split suggests overfitting
3. Risk - drawdown and downside deviation, not just win rate
4. Practical significance - effect size matters as much as the p-value

Always respond with valid JSON in this format:
{
  "summary": "two or three sentences",
  "concerns": ["concern 1", "concern 2"],
  "recommendation": "accept" | "investigate" | "reject"
}

Never recommend accept when the verdict says no proven edge.`
