package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/edgeval/internal/backtest"
	"github.com/newthinker/edgeval/internal/meta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequest(t *testing.T) {
	f := validateFlags{
		symbols:  []string{"aapl", " msft", ""},
		from:     "2020-01-01",
		to:       "2023-06-30",
		holdDays: 10,
		seed:     9,
		source:   "csv",
	}

	req, err := buildRequest("breakout", f, true)
	require.NoError(t, err)

	assert.Equal(t, "breakout", req.Strategy)
	assert.Equal(t, []string{"AAPL", "MSFT"}, req.Symbols)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), req.Start)
	assert.Equal(t, time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC), req.End)
	assert.Equal(t, 10, req.HoldDays)
	assert.Equal(t, "csv", req.Source)
	require.NotNil(t, req.Seed)
	assert.Equal(t, uint64(9), *req.Seed)

	req, err = buildRequest("breakout", f, false)
	require.NoError(t, err)
	assert.Nil(t, req.Seed, "seed is only pinned when the flag is given")
}

func TestBuildRequest_Errors(t *testing.T) {
	base := validateFlags{symbols: []string{"SPY"}, from: "2020-01-01", to: "2021-01-01"}

	tests := []struct {
		name   string
		mutate func(*validateFlags)
	}{
		{"bad from", func(f *validateFlags) { f.from = "2020/01/01" }},
		{"bad to", func(f *validateFlags) { f.to = "" }},
		{"empty range", func(f *validateFlags) { f.to = f.from }},
		{"reversed range", func(f *validateFlags) { f.from, f.to = f.to, f.from }},
		{"negative hold", func(f *validateFlags) { f.holdDays = -3 }},
		{"blank symbols", func(f *validateFlags) { f.symbols = []string{" ", ""} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base
			tt.mutate(&f)
			_, err := buildRequest("x", f, false)
			assert.Error(t, err)
		})
	}
}

func testReport() *backtest.Report {
	return &backtest.Report{
		StrategyName:         "breakout",
		Status:               backtest.StatusValidated,
		TotalTrades:          31,
		WinRate:              54.8,
		FailedChecks:         []string{backtest.CheckPValue},
		ConfidenceInterval95: backtest.Interval{Lower: 38.7, Upper: 71},
		GeneratedAt:          time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestWriteOutput_Text(t *testing.T) {
	var buf bytes.Buffer
	rv := &meta.Review{Summary: "thin edge", Concerns: []string{"few trades"}, Recommendation: meta.RecommendInvestigate}

	require.NoError(t, writeOutput(&buf, "text", testReport(), rv))

	out := buf.String()
	assert.Contains(t, out, "breakout")
	assert.Contains(t, out, "NO PROVEN EDGE")
	assert.Contains(t, out, "Review (investigate): thin edge")
	assert.Contains(t, out, "  - few trades")
}

func TestWriteOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "json", testReport(), nil))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "breakout", got["strategy_name"])
	assert.Equal(t, []any{38.7, 71.0}, got["confidence_interval_95"])
	assert.NotContains(t, got, "review")
}

func TestWriteOutput_JSONWithReview(t *testing.T) {
	var buf bytes.Buffer
	rv := &meta.Review{Summary: "ok", Recommendation: meta.RecommendAccept}
	require.NoError(t, writeOutput(&buf, "json", testReport(), rv))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "breakout", got["strategy_name"])
	review, ok := got["review"].(map[string]any)
	require.True(t, ok, "review should be embedded")
	assert.Equal(t, "accept", review["recommendation"])
}

func TestWriteOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	var buf bytes.Buffer

	require.NoError(t, writeOutput(&buf, path, testReport(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var r backtest.Report
	require.NoError(t, json.Unmarshal(data, &r))
	assert.Equal(t, 31, r.TotalTrades)
	assert.Contains(t, buf.String(), "breakout", "summary still goes to stdout")
}
