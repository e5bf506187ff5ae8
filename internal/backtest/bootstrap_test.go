package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWinRateInterval_ContainsObserved(t *testing.T) {
	returns := []float64{1, 2, -1, 3, -2, 4, 5, -3, 1, -1} // 6 of 10 win

	ci, err := WinRateInterval(context.Background(), returns, 10000, 0.95, Resampler{Workers: 4, Seed: 5})
	require.NoError(t, err)

	assert.True(t, ci.Contains(60), "interval %v", ci)
	assert.LessOrEqual(t, ci.Lower, ci.Upper)
	assert.GreaterOrEqual(t, ci.Lower, 20.0)
	assert.LessOrEqual(t, ci.Upper, 100.0)
}

func TestWinRateInterval_AllWinners(t *testing.T) {
	ci, err := WinRateInterval(context.Background(), []float64{1, 2, 3}, 500, 0.95, Resampler{Workers: 2, Seed: 5})
	require.NoError(t, err)
	assert.Equal(t, Interval{Lower: 100, Upper: 100}, ci)
}

func TestWinRateInterval_ZeroIsNotAWin(t *testing.T) {
	ci, err := WinRateInterval(context.Background(), []float64{0, 0, 0, 0}, 500, 0.95, Resampler{Workers: 2, Seed: 5})
	require.NoError(t, err)
	assert.Equal(t, Interval{}, ci)
}

func TestWinRateInterval_Empty(t *testing.T) {
	ci, err := WinRateInterval(context.Background(), nil, 500, 0.95, Resampler{Workers: 2, Seed: 5})
	require.NoError(t, err)
	assert.Equal(t, Interval{}, ci)
}

func TestWinRateInterval_NarrowsWithConfidence(t *testing.T) {
	returns := []float64{1, 2, -1, 3, -2, 4, 5, -3, 1, -1, 2, -2, 3, 1, -1, 2, 1, -4, 2, 2}
	rs := Resampler{Workers: 4, Seed: 5}

	wide, err := WinRateInterval(context.Background(), returns, 5000, 0.99, rs)
	require.NoError(t, err)
	narrow, err := WinRateInterval(context.Background(), returns, 5000, 0.80, rs)
	require.NoError(t, err)

	assert.LessOrEqual(t, wide.Lower, narrow.Lower)
	assert.GreaterOrEqual(t, wide.Upper, narrow.Upper)
}
