// Package csvfile serves OHLCV history from local CSV exports, one file per
// symbol named <SYMBOL>.csv with a Date,Open,High,Low,Close,Volume header.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/edgeval/internal/core"
)

var required = []string{"date", "open", "high", "low", "close"}

// Provider reads history from a directory of CSV files
type Provider struct {
	dir string
}

// New creates a CSV provider rooted at dir
func New(dir string) *Provider {
	return &Provider{dir: dir}
}

func (p *Provider) Name() string {
	return "csv"
}

// FetchHistory loads <dir>/<symbol>.csv and returns bars within [start, end]
func (p *Provider) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]core.OHLCV, error) {
	if symbol == "" || strings.ContainsAny(symbol, `/\`) || strings.Contains(symbol, "..") {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("invalid symbol: %q", symbol))
	}

	f, err := os.Open(filepath.Join(p.dir, symbol+".csv"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.WrapError(core.ErrNoData, err)
		}
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}
	defer f.Close()

	bars, err := parse(ctx, symbol, f)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("%s: %w", symbol, err))
	}

	from, to := core.DateKey(start), core.DateKey(end)
	out := bars[:0]
	for _, b := range bars {
		key := core.DateKey(b.Time)
		if key >= from && key <= to {
			out = append(out, b)
		}
	}
	return out, nil
}

func parse(ctx context.Context, symbol string, r io.Reader) ([]core.OHLCV, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	volCol, hasVolume := cols["volume"]

	var bars []core.OHLCV
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := time.Parse("2006-01-02", rec[cols["date"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		var vals [4]float64
		for i, name := range required[1:] {
			vals[i], err = strconv.ParseFloat(rec[cols[name]], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d %s: %w", line, name, err)
			}
		}

		bar := core.OHLCV{
			Symbol: symbol,
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Time:   ts,
		}
		if hasVolume && rec[volCol] != "" {
			v, err := strconv.ParseFloat(rec[volCol], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d volume: %w", line, err)
			}
			bar.Volume = int64(v)
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
