package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
	"github.com/thetyagiayush/warhol-ringmaster/internal/service"
	"go.uber.org/zap"
)

// CostHandler serves the cost dashboard
type CostHandler struct {
	dashboard *service.CostDashboard
	logger    *zap.Logger
}

func NewCostHandler(dashboard *service.CostDashboard, logger *zap.Logger) *CostHandler {
	return &CostHandler{dashboard: dashboard, logger: logger}
}

// Get returns the last fetched report together with the last fetch error
func (h *CostHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.dashboard.View())
}

// Breakdown fetches the report for an optional {start_date, end_date} range.
// An empty body asks for the full range.
func (h *CostHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	var req domain.CostBreakdownRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	breakdown, err := h.dashboard.FetchBreakdown(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, breakdown)
}

// UpdateBudget sets the total budget from the operator's raw input
func (h *CostHandler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateBudgetInput
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	update, err := h.dashboard.UpdateBudget(r.Context(), req.Amount)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, update)
}
