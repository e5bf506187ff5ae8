// internal/api/handler/api/reports_test.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/edgeval/internal/backtest"
	"github.com/newthinker/edgeval/internal/core"
	"github.com/newthinker/edgeval/internal/report"
	"github.com/newthinker/edgeval/internal/storage/archive"
)

type staticSource struct {
	store *report.Store
	err   error
}

func (s staticSource) Reports() (*report.Store, error) { return s.store, s.err }

func newReportSource(t *testing.T) (staticSource, string) {
	t.Helper()
	fs, err := archive.NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatalf("creating archive: %v", err)
	}
	store := report.NewStore(fs, nil, nil)

	key, err := store.Save(context.Background(), &backtest.Report{
		StrategyName: "breakout",
		Status:       backtest.StatusValidated,
		TotalTrades:  33,
		FailedChecks: []string{},
		GeneratedAt:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("saving report: %v", err)
	}
	return staticSource{store: store}, key
}

func TestReportsHandler_List(t *testing.T) {
	src, key := newReportSource(t)
	h := NewReportsHandler(src)

	tests := []struct {
		query string
		want  int
	}{
		{"", 1},
		{"?strategy=breakout", 1},
		{"?strategy=ma_crossover", 0},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		h.List(w, httptest.NewRequest("GET", "/api/reports"+tt.query, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%q: expected 200, got %d", tt.query, w.Code)
		}

		var resp struct {
			Data struct {
				Keys  []string `json:"keys"`
				Count int      `json:"count"`
			} `json:"data"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Data.Count != tt.want {
			t.Errorf("%q: expected %d keys, got %d", tt.query, tt.want, resp.Data.Count)
		}
		if tt.want == 1 && resp.Data.Keys[0] != key {
			t.Errorf("%q: expected %s, got %v", tt.query, key, resp.Data.Keys)
		}
	}
}

func TestReportsHandler_ListBadStrategy(t *testing.T) {
	src, _ := newReportSource(t)
	h := NewReportsHandler(src)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest("GET", "/api/reports?strategy=../etc", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestReportsHandler_Get(t *testing.T) {
	src, key := newReportSource(t)
	h := NewReportsHandler(src)

	req := httptest.NewRequest("GET", "/api/reports/"+key, nil)
	req.SetPathValue("key", key)
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data backtest.Report `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Data.StrategyName != "breakout" || resp.Data.TotalTrades != 33 {
		t.Errorf("unexpected report %+v", resp.Data)
	}
}

func TestReportsHandler_GetErrors(t *testing.T) {
	src, _ := newReportSource(t)
	h := NewReportsHandler(src)

	tests := []struct {
		key  string
		want int
	}{
		{"reports/breakout/missing.json", http.StatusNotFound},
		{"../secrets.json", http.StatusBadRequest},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/api/reports/x", nil)
		req.SetPathValue("key", tt.key)
		w := httptest.NewRecorder()
		h.Get(w, req)
		if w.Code != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.key, tt.want, w.Code)
		}
	}
}

func TestReportsHandler_ArchiveUnavailable(t *testing.T) {
	h := NewReportsHandler(staticSource{err: core.WrapError(core.ErrConfigInvalid, nil)})

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest("GET", "/api/reports", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
