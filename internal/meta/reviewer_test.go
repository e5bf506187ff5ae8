package meta

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/newthinker/edgeval/internal/backtest"
	"github.com/newthinker/edgeval/internal/core"
	"github.com/newthinker/edgeval/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLLM struct {
	reply string
	err   error
	last  llm.Prompt
}

func (m *mockLLM) Name() string { return "mock" }

func (m *mockLLM) Complete(ctx context.Context, p llm.Prompt) (*llm.Completion, error) {
	m.last = p
	if m.err != nil {
		return nil, m.err
	}
	return &llm.Completion{Text: m.reply}, nil
}

func testReport() *backtest.Report {
	return &backtest.Report{
		StrategyName:          "ma_crossover",
		TotalTrades:           25,
		WinRate:               60,
		PValue:                0.2,
		ActualVsRandomStdDevs: 0.9,
		DegradationPct:        -35,
		DegradationUnstable:   true,
		FailedChecks:          []string{backtest.CheckPValue, backtest.CheckDegradation},
		Symbols:               []string{"AAPL"},
		HoldDays:              5,
		ConfidenceLevel:       0.95,
	}
}

func TestReviewer_ParsesJSON(t *testing.T) {
	m := &mockLLM{reply: `{"summary":"Weak evidence.","concerns":["only 25 trades","out-of-sample collapse"],"recommendation":"Reject"}`}
	rv := NewReviewer(m, nil)

	review, err := rv.Review(context.Background(), testReport())
	require.NoError(t, err)

	assert.Equal(t, "Weak evidence.", review.Summary)
	assert.Equal(t, []string{"only 25 trades", "out-of-sample collapse"}, review.Concerns)
	assert.Equal(t, RecommendReject, review.Recommendation)
	assert.Equal(t, "mock", review.Provider)
	assert.True(t, m.last.JSON)
}

func TestReviewer_PromptCarriesVerdict(t *testing.T) {
	m := &mockLLM{reply: `{"summary":"x"}`}
	_, err := NewReviewer(m, nil).Review(context.Background(), testReport())
	require.NoError(t, err)

	prompt := m.last.User
	assert.Contains(t, prompt, "ma_crossover")
	assert.Contains(t, prompt, "Trades: 25")
	assert.Contains(t, prompt, "failed checks: p_value, degradation")
	assert.Contains(t, prompt, "unstable")
}

func TestReviewer_ToleratesFences(t *testing.T) {
	m := &mockLLM{reply: "Here you go:\n```json\n{\"summary\":\"Fine.\",\"recommendation\":\"maybe\"}\n```"}

	review, err := NewReviewer(m, nil).Review(context.Background(), testReport())
	require.NoError(t, err)

	assert.Equal(t, "Fine.", review.Summary)
	assert.Equal(t, RecommendInvestigate, review.Recommendation)
	assert.NotNil(t, review.Concerns)
}

func TestReviewer_FallsBackToText(t *testing.T) {
	m := &mockLLM{reply: "  The sample is too small to say anything.  "}

	review, err := NewReviewer(m, nil).Review(context.Background(), testReport())
	require.NoError(t, err)

	assert.Equal(t, "The sample is too small to say anything.", review.Summary)
	assert.Equal(t, RecommendInvestigate, review.Recommendation)
}

func TestReviewer_Errors(t *testing.T) {
	m := &mockLLM{err: errors.New("timeout")}
	_, err := NewReviewer(m, nil).Review(context.Background(), testReport())
	assert.ErrorIs(t, err, core.ErrLLMFailed)

	_, err = NewReviewer(&mockLLM{}, nil).Review(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrNoData)
}

func TestParseReview(t *testing.T) {
	tests := []struct {
		in  string
		ok  bool
		rec string
	}{
		{`{"summary":"a","recommendation":"accept"}`, true, RecommendAccept},
		{`{"summary":"a","recommendation":" INVESTIGATE "}`, true, RecommendInvestigate},
		{`{"summary":""}`, false, ""},
		{`not json`, false, ""},
		{`} backwards {`, false, ""},
	}

	for _, tt := range tests {
		t.Run(strings.ReplaceAll(tt.in, "/", "_"), func(t *testing.T) {
			review, ok := parseReview(tt.in)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.rec, review.Recommendation)
			}
		})
	}
}
