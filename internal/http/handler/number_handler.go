package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
	"github.com/thetyagiayush/warhol-ringmaster/internal/service"
	"go.uber.org/zap"
)

// multipartMemory is held in memory before ParseMultipartForm spills to disk
const multipartMemory = 8 << 20

// NumberHandler serves the number registry screen
type NumberHandler struct {
	registry      *service.NumberRegistry
	maxUploadSize int64
	logger        *zap.Logger
}

// NewNumberHandler creates a handler accepting audio uploads up to maxUploadMB megabytes
func NewNumberHandler(registry *service.NumberRegistry, maxUploadMB int64, logger *zap.Logger) *NumberHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 25
	}
	return &NumberHandler{
		registry:      registry,
		maxUploadSize: maxUploadMB << 20,
		logger:        logger,
	}
}

// List refetches every mapping from the backend
func (h *NumberHandler) List(w http.ResponseWriter, r *http.Request) {
	numbers, err := h.registry.List(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, numbers)
}

// Create registers a number from a multipart form with phone_number,
// text_content and audio_file
func (h *NumberHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}

	audio, err := readAudio(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	mapping, err := h.registry.Add(r.Context(), domain.AddNumberInput{
		PhoneNumber: r.FormValue("phone_number"),
		TextContent: r.FormValue("text_content"),
		Audio:       audio,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, mapping)
}

func (h *NumberHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	draft, err := h.registry.Duplicate(id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, draft)
}

func (h *NumberHandler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.registry.Drafts())
}

func (h *NumberHandler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.DiscardDraft(chi.URLParam(r, "key")); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateText replaces the follow-up SMS text
func (h *NumberHandler) UpdateText(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req domain.UpdateTextRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	mapping, err := h.registry.EditText(r.Context(), id, req.TextContent)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, mapping)
}

// UpdateAudio replaces the greeting from a multipart audio_file part
func (h *NumberHandler) UpdateAudio(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.parseMultipart(w, r) {
		return
	}

	audio, err := readAudio(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	mapping, err := h.registry.ReplaceAudio(r.Context(), id, audio)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, mapping)
}

// Delete removes a mapping; the caller must pass confirm=true
func (h *NumberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	confirmed := strings.EqualFold(r.URL.Query().Get("confirm"), "true")
	if err := h.registry.Delete(r.Context(), id, confirmed); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NumberHandler) ConfigureWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.registry.ConfigureWebhook(r.Context(), id); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NumberHandler) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Upload exceeds the %d MB limit", h.maxUploadSize>>20))
			return false
		}
		respondWithError(w, http.StatusBadRequest, "Request must be multipart/form-data")
		return false
	}
	return true
}

// readAudio returns the audio_file part, or nil when the form has none
func readAudio(r *http.Request) (*domain.AudioFile, error) {
	file, header, err := r.FormFile("audio_file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid audio_file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio_file: %w", err)
	}
	return &domain.AudioFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
