package core

import "time"

// OHLCV represents a candlestick/bar
type OHLCV struct {
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	Time   time.Time
}

// IsValid checks if the bar can be used as an entry or exit price
func (b OHLCV) IsValid() bool {
	return b.Close > 0 && !b.Time.IsZero()
}

// Signal is a candidate entry produced by a strategy: a symbol and the
// date its rule fired. Signals are values and are never mutated.
type Signal struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
}

// DateKey normalizes a timestamp to its calendar day in UTC, the key used
// to line up signal dates with bars from any provider.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
