// internal/api/handler/api/reports.go
package api

import (
	"net/http"

	"github.com/newthinker/edgeval/internal/api/response"
	"github.com/newthinker/edgeval/internal/report"
)

// ReportSource opens the report archive. *app.App satisfies it.
type ReportSource interface {
	Reports() (*report.Store, error)
}

// ReportsHandler serves archived validation reports.
type ReportsHandler struct {
	source ReportSource
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(source ReportSource) *ReportsHandler {
	return &ReportsHandler{source: source}
}

func (h *ReportsHandler) store(w http.ResponseWriter) (*report.Store, bool) {
	store, err := h.source.Reports()
	if err != nil {
		response.Fail(w, err)
		return nil, false
	}
	return store, true
}

// List returns archived report keys, optionally filtered by ?strategy=.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w)
	if !ok {
		return
	}
	keys, err := store.List(r.Context(), r.URL.Query().Get("strategy"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"keys":  keys,
		"count": len(keys),
	})
}

// Get returns one archived report by key.
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w)
	if !ok {
		return
	}
	rpt, err := store.Load(r.Context(), r.PathValue("key"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rpt)
}
