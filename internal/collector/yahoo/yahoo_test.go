package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/edgeval/internal/collector"
	"github.com/newthinker/edgeval/internal/core"
)

func TestYahoo_ImplementsProvider(t *testing.T) {
	var _ collector.Provider = (*Yahoo)(nil)
}

func TestYahoo_Name(t *testing.T) {
	y := New(Options{})
	if y.Name() != "yahoo" {
		t.Errorf("expected 'yahoo', got '%s'", y.Name())
	}
}

func TestYahoo_ToYahooSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"AAPL", "AAPL"},
		{"0700.HK", "0700.HK"},
		{"600519.SH", "600519.SS"}, // Shanghai -> SS for Yahoo
		{"000001.SZ", "000001.SZ"},
	}

	y := New(Options{})
	for _, tc := range tests {
		got := y.toYahooSymbol(tc.input)
		if got != tc.expected {
			t.Errorf("toYahooSymbol(%s) = %s, want %s", tc.input, got, tc.expected)
		}
	}
}

func TestValidateSymbol(t *testing.T) {
	valid := []string{"AAPL", "BRK-B", "0700.HK", "^GSPC"}
	for _, s := range valid {
		if err := validateSymbol(s); err != nil {
			t.Errorf("validateSymbol(%q) unexpected error: %v", s, err)
		}
	}

	invalid := []string{"", "../etc/passwd", "AAPL?x=1", strings.Repeat("A", 25)}
	for _, s := range invalid {
		if err := validateSymbol(s); err == nil {
			t.Errorf("validateSymbol(%q) expected error", s)
		}
	}
}

const chartJSON = `{
  "chart": {
    "result": [{
      "timestamp": [1704196800, 1704283200, 1704369600],
      "indicators": {
        "quote": [{
          "open":   [100.0, null, 102.0],
          "high":   [101.0, null, 103.0],
          "low":    [99.0,  null, 101.0],
          "close":  [100.5, null, 102.5],
          "volume": [1000,  null, 1200]
        }]
      }
    }],
    "error": null
  }
}`

func TestYahoo_FetchHistory(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	y := New(Options{BaseURL: srv.URL, RequestsPerSec: 100})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	bars, err := y.FetchHistory(context.Background(), "600519.SH", start, end)
	if err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}

	if gotPath != "/600519.SS" {
		t.Errorf("path = %s, want /600519.SS", gotPath)
	}
	if !strings.Contains(gotQuery, "interval=1d") {
		t.Errorf("query missing interval: %s", gotQuery)
	}

	// the null row is skipped
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Close != 100.5 || bars[1].Close != 102.5 {
		t.Errorf("unexpected closes: %v, %v", bars[0].Close, bars[1].Close)
	}
	if bars[1].Volume != 1200 {
		t.Errorf("volume = %d, want 1200", bars[1].Volume)
	}
	if bars[0].Symbol != "600519.SH" {
		t.Errorf("symbol = %s, want internal format", bars[0].Symbol)
	}
}

func TestYahoo_FetchHistory_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr *core.Error
	}{
		{"server error", http.StatusInternalServerError, "", core.ErrCollectorFailed},
		{"bad json", http.StatusOK, "{", core.ErrCollectorFailed},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, core.ErrCollectorFailed},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, core.ErrNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			y := New(Options{BaseURL: srv.URL, RequestsPerSec: 100})
			_, err := y.FetchHistory(context.Background(), "AAPL", time.Now().AddDate(0, -1, 0), time.Now())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestYahoo_FetchHistory_InvalidSymbol(t *testing.T) {
	y := New(Options{BaseURL: "http://127.0.0.1:0"})
	_, err := y.FetchHistory(context.Background(), "bad symbol!", time.Now(), time.Now())
	if err == nil {
		t.Error("expected error for invalid symbol")
	}
}

func TestYahoo_FetchHistory_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	y := New(Options{BaseURL: srv.URL})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := y.FetchHistory(ctx, "AAPL", time.Now(), time.Now()); err == nil {
		t.Error("expected error for canceled context")
	}
}
