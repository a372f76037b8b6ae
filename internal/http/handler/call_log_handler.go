package handler

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
	"github.com/thetyagiayush/warhol-ringmaster/internal/service"
	"go.uber.org/zap"
)

// CallLogHandler serves the call log screen
type CallLogHandler struct {
	view   *service.CallLogView
	logger *zap.Logger
}

func NewCallLogHandler(view *service.CallLogView, logger *zap.Logger) *CallLogHandler {
	return &CallLogHandler{view: view, logger: logger}
}

// CallLogListResponse is the call log screen payload
type CallLogListResponse struct {
	View   domain.CallLogViewMode `json:"view"`
	Search string                 `json:"search,omitempty"`
	Total  int                    `json:"total"`
	Logs   []domain.CallLogEntry  `json:"logs"`
}

// List refetches the history and returns the requested view.
// Query: view=latest|all (default latest), search=<substring>.
func (h *CallLogHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, err := h.view.FetchLogs(r.Context()); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	mode, search := viewQuery(r)
	logs := h.view.View(mode, search)
	respondJSON(w, http.StatusOK, CallLogListResponse{
		View:   mode,
		Search: search,
		Total:  len(logs),
		Logs:   logs,
	})
}

// Export downloads the last fetched history as CSV, using the same view
// and search parameters as List
func (h *CallLogHandler) Export(w http.ResponseWriter, r *http.Request) {
	mode, search := viewQuery(r)

	export, err := h.view.ExportCSV(r.Context(), mode, search)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Content)))
	if export.ArchiveKey != "" {
		w.Header().Set("X-Archive-Key", export.ArchiveKey)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Content)
}

// DownloadArchived streams a previously archived export. The key is the
// rest of the path, as returned in X-Archive-Key.
func (h *CallLogHandler) DownloadArchived(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		respondWithError(w, http.StatusBadRequest, "archive key is required")
		return
	}

	rc, err := h.view.OpenArchivedExport(r.Context(), key)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("failed to stream archived export", zap.String("key", key), zap.Error(err))
	}
}

func (h *CallLogHandler) DeleteArchived(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		respondWithError(w, http.StatusBadRequest, "archive key is required")
		return
	}

	if err := h.view.RemoveArchivedExport(r.Context(), key); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func viewQuery(r *http.Request) (domain.CallLogViewMode, string) {
	q := r.URL.Query()
	mode := domain.CallLogViewLatest
	if q.Get("view") == string(domain.CallLogViewAll) {
		mode = domain.CallLogViewAll
	}
	return mode, q.Get("search")
}
