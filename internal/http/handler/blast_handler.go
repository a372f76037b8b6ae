package handler

import (
	"net/http"

	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
	"github.com/thetyagiayush/warhol-ringmaster/internal/service"
	"go.uber.org/zap"
)

// BlastHandler serves the text blast screen
type BlastHandler struct {
	dispatcher *service.BlastDispatcher
	logger     *zap.Logger
}

func NewBlastHandler(dispatcher *service.BlastDispatcher, logger *zap.Logger) *BlastHandler {
	return &BlastHandler{dispatcher: dispatcher, logger: logger}
}

// Refresh reloads call logs and custom filters and rebuilds the recipient list
func (h *BlastHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	view, err := h.dispatcher.Refresh(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *BlastHandler) Recipients(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.dispatcher.RecipientView())
}

// SetFilters applies the called-number and custom filters; the selection is
// reset to the newly filtered set
func (h *BlastHandler) SetFilters(w http.ResponseWriter, r *http.Request) {
	var req domain.RecipientFiltersRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.dispatcher.SetFilters(req.Called, req.CustomFilterID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *BlastHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req domain.ToggleRecipientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	view, err := h.dispatcher.Toggle(req.PhoneNumber)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *BlastHandler) ToggleSelectAll(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.dispatcher.ToggleSelectAll())
}

func (h *BlastHandler) ListCustomFilters(w http.ResponseWriter, r *http.Request) {
	filters, err := h.dispatcher.CustomFilters(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, filters)
}

// CreateCustomFilter saves a named list; it is applied through SetFilters
func (h *BlastHandler) CreateCustomFilter(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCustomFilterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter, err := h.dispatcher.CreateFilter(r.Context(), req.Name, req.PhoneNumbers)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, filter)
}

func (h *BlastHandler) SetMessage(w http.ResponseWriter, r *http.Request) {
	var req domain.BlastMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.dispatcher.SetMessage(req.Message)
	respondJSON(w, http.StatusOK, h.dispatcher.Status())
}

// Send starts the blast in the background. Progress is read from Status.
func (h *BlastHandler) Send(w http.ResponseWriter, r *http.Request) {
	status, err := h.dispatcher.Start(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusAccepted, status)
}

func (h *BlastHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.dispatcher.Status())
}
