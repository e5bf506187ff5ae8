package backtest

import (
	"testing"

	"github.com/newthinker/edgeval/internal/core"
	"github.com/stretchr/testify/assert"
)

func signalAt(symbol string, i int) core.Signal {
	return core.Signal{Symbol: symbol, Date: day0.AddDate(0, 0, i)}
}

func TestSplitEvaluate_ChronologicalCut(t *testing.T) {
	// chronological returns: 5 of the first 7 win, 1 of the last 3
	returns := []float64{1, 1, -1, 1, 1, -1, 1, -1, 1, -1}
	outcomes := make([]SignalOutcome, len(returns))
	for i, r := range returns {
		outcomes[i] = SignalOutcome{Signal: signalAt("AAA", i), ReturnPct: r}
	}
	shuffled := []SignalOutcome{
		outcomes[9], outcomes[2], outcomes[7], outcomes[0], outcomes[5],
		outcomes[3], outcomes[8], outcomes[1], outcomes[6], outcomes[4],
	}

	res := SplitEvaluate(shuffled, 0.7, 10)

	assert.Equal(t, 7, res.InSampleCount)
	assert.Equal(t, 3, res.OutSampleCount)
	assert.InDelta(t, 500.0/7, res.InSampleWinRate, 1e-9)
	assert.InDelta(t, 100.0/3, res.OutSampleWinRate, 1e-9)
	assert.InDelta(t, (100.0/3-500.0/7)/(500.0/7)*100, res.DegradationPct, 1e-9)
	assert.False(t, res.Unstable)
	assert.Equal(t, day0.AddDate(0, 0, 9), shuffled[0].Signal.Date, "input is not reordered")
}

func TestSplitEvaluate_ZeroInSampleRate(t *testing.T) {
	outcomes := make([]SignalOutcome, 10)
	for i := range outcomes {
		r := -1.0
		if i >= 7 {
			r = 1
		}
		outcomes[i] = SignalOutcome{Signal: signalAt("AAA", i), ReturnPct: r}
	}

	res := SplitEvaluate(outcomes, 0.7, 10)

	assert.Equal(t, 0.0, res.InSampleWinRate)
	assert.Equal(t, 100.0, res.OutSampleWinRate)
	assert.Equal(t, 0.0, res.DegradationPct)
	assert.True(t, res.Unstable)
}

func TestSplitEvaluate_EmptySegment(t *testing.T) {
	outcomes := []SignalOutcome{{Signal: signalAt("AAA", 0), ReturnPct: 1}}

	res := SplitEvaluate(outcomes, 0.7, 10)

	assert.Equal(t, 0, res.InSampleCount)
	assert.Equal(t, 1, res.OutSampleCount)
	assert.True(t, res.Unstable)
}

func TestSortChronologically_TieBreakBySymbol(t *testing.T) {
	in := []SignalOutcome{
		{Signal: signalAt("ZZZ", 1)},
		{Signal: signalAt("AAA", 1)},
		{Signal: signalAt("MMM", 0)},
	}

	out := sortChronologically(in)

	assert.Equal(t, []string{"MMM", "AAA", "ZZZ"}, []string{out[0].Signal.Symbol, out[1].Signal.Symbol, out[2].Signal.Symbol})
	assert.Equal(t, "ZZZ", in[0].Signal.Symbol)
}
