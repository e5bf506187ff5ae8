// internal/api/handler/api/strategies.go
package api

import (
	"net/http"

	"github.com/newthinker/edgeval/internal/api/response"
	"github.com/newthinker/edgeval/internal/strategy"
)

// StrategyInfo describes one registered strategy.
type StrategyInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	PriceHistory int    `json:"price_history"`
}

// StrategiesHandler lists the strategies available for validation.
type StrategiesHandler struct {
	registry *strategy.Registry
}

// NewStrategiesHandler creates a new strategies handler.
func NewStrategiesHandler(registry *strategy.Registry) *StrategiesHandler {
	return &StrategiesHandler{registry: registry}
}

// List returns the registered strategies in name order.
func (h *StrategiesHandler) List(w http.ResponseWriter, r *http.Request) {
	names := h.registry.Names()
	out := make([]StrategyInfo, 0, len(names))
	for _, name := range names {
		s, ok := h.registry.Get(name)
		if !ok {
			continue
		}
		out = append(out, StrategyInfo{
			Name:         s.Name(),
			Description:  s.Description(),
			PriceHistory: s.RequiredData().PriceHistory,
		})
	}
	response.JSON(w, http.StatusOK, out)
}
