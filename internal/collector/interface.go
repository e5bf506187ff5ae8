package collector

import (
	"context"
	"time"

	"github.com/newthinker/edgeval/internal/core"
)

// Provider supplies daily OHLCV history for a symbol. Bars are returned in
// ascending time order. Callers treat any error as "no data for this
// symbol"; providers never retry on their own.
type Provider interface {
	Name() string
	FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]core.OHLCV, error)
}
