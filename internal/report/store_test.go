package report

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/edgeval/internal/backtest"
	"github.com/newthinker/edgeval/internal/core"
	"github.com/newthinker/edgeval/internal/storage/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *backtest.Report {
	return &backtest.Report{
		StrategyName:               "ma_crossover",
		Status:                     backtest.StatusValidated,
		TotalTrades:                42,
		WinRate:                    57.14,
		AvgGain:                    0.8,
		SharpeRatio:                0.31,
		SortinoRatio:               backtest.Ratio(math.Inf(1)),
		MaxDrawdown:                12.5,
		PValue:                     0.012,
		ActualVsRandomStdDevs:      2.4,
		ConfidenceInterval95:       backtest.Interval{Lower: 42.86, Upper: 71.43},
		EffectSizeLabel:            "small",
		DegradationPct:             -8.3,
		IsStatisticallySignificant: true,
		FailedChecks:               []string{},
		AllReturns:                 []float64{1, -1},
		EquityCurve:                []float64{10000, 10100, 9999},
		Symbols:                    []string{"AAPL", "MSFT"},
		Start:                      time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		End:                        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		HoldDays:                   5,
		Seed:                       7,
		ConfidenceLevel:            0.95,
		GeneratedAt:                time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
	}
}

type countingRecorder struct{ ok, failed int }

func (c *countingRecorder) RecordReportSaved(ok bool) {
	if ok {
		c.ok++
	} else {
		c.failed++
	}
}

func newTestStore(t *testing.T) (*Store, *countingRecorder) {
	t.Helper()
	fs, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	rec := &countingRecorder{}
	return NewStore(fs, nil, rec), rec
}

func TestStore_SaveLoad(t *testing.T) {
	s, rec := newTestStore(t)
	ctx := context.Background()

	key, err := s.Save(ctx, sampleReport())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "reports/ma_crossover/20240601T123000Z-"), key)
	assert.True(t, strings.HasSuffix(key, ".json"))
	assert.Equal(t, 1, rec.ok)

	loaded, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, sampleReport(), loaded)
	assert.True(t, math.IsInf(float64(loaded.SortinoRatio), 1))
}

func TestStore_SaveTwiceGivesDistinctKeys(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a, err := s.Save(ctx, sampleReport())
	require.NoError(t, err)
	b, err := s.Save(ctx, sampleReport())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	keys, err := s.List(ctx, "ma_crossover")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, keys)
}

func TestStore_ListFilters(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	r := sampleReport()
	_, err := s.Save(ctx, r)
	require.NoError(t, err)
	r.StrategyName = "breakout"
	_, err = s.Save(ctx, r)
	require.NoError(t, err)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	breakout, err := s.List(ctx, "breakout")
	require.NoError(t, err)
	assert.Len(t, breakout, 1)

	none, err := s.List(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.List(ctx, "../etc")
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestStore_LoadRejectsBadKeys(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "reports/x.json", "reports/../secret/x.json", "other/a/b.json", "reports/a/b.txt"} {
		_, err := s.Load(ctx, key)
		assert.ErrorIs(t, err, core.ErrConfigInvalid, key)
	}

	_, err := s.Load(ctx, "reports/ma_crossover/missing.json")
	assert.ErrorIs(t, err, core.ErrNoData)
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "ma_crossover")
	assert.Contains(t, out, "AAPL, MSFT (0 skipped)")
	assert.Contains(t, out, "2020-01-01 .. 2024-01-01")
	assert.Contains(t, out, "57.14%  95% CI [42.86, 71.43]")
	assert.Contains(t, out, "+Inf")
	assert.Contains(t, out, "EDGE CONFIRMED")

	r := sampleReport()
	r.IsStatisticallySignificant = false
	r.FailedChecks = []string{backtest.CheckPValue, backtest.CheckDegradation}
	r.DegradationUnstable = true
	buf.Reset()
	require.NoError(t, WriteSummary(&buf, r))
	assert.Contains(t, buf.String(), "NO PROVEN EDGE (failed: p_value, degradation)")
	assert.Contains(t, buf.String(), "(unstable)")
}
