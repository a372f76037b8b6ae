package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
	"github.com/thetyagiayush/warhol-ringmaster/internal/http/middleware"
	"github.com/thetyagiayush/warhol-ringmaster/internal/service"
	"go.uber.org/zap"
)

var validate = validator.New()

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondValidationError sends a standardized validation error response with specific field messages
func respondValidationError(w http.ResponseWriter, err error) {
	fieldErrors := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fieldErrors[toJSONFieldName(fe.Field())] = formatValidationError(fe)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "One or more fields failed validation",
		Errors: fieldErrors,
	})
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

// toJSONFieldName converts a Go struct field name to its JSON equivalent (camelCase)
func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// respondWithError sends a standardized JSON error response
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondProblem(w, status, http.StatusText(status), message)
}

func respondProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   getErrorType(status),
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// getErrorType returns the appropriate error type for an HTTP status code
func getErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return domain.ErrorTypeBadRequest
	case http.StatusNotFound:
		return domain.ErrorTypeNotFound
	case http.StatusConflict:
		return domain.ErrorTypeConflict
	case http.StatusBadGateway:
		return domain.ErrorTypeBadGateway
	case http.StatusRequestEntityTooLarge:
		return domain.ErrorTypeTooLarge
	case http.StatusTooManyRequests:
		return domain.ErrorTypeRateLimited
	case http.StatusServiceUnavailable:
		return domain.ErrorTypeUnavailable
	default:
		return domain.ErrorTypeInternal
	}
}

// handleServiceError maps manager errors onto problem responses.
// Validation and backend errors carry the text the operator also sees as a toast.
func handleServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var verr *service.ValidationError
	var berr *service.BackendError

	switch {
	case errors.As(err, &verr):
		respondProblem(w, http.StatusBadRequest, verr.Title, verr.Description)
	case errors.As(err, &berr):
		respondProblem(w, http.StatusBadGateway, berr.Title, berr.Description)
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrDraftNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConfirmationRequired):
		respondWithError(w, http.StatusBadRequest, "Deletion must be confirmed with confirm=true")
	case errors.Is(err, service.ErrDispatchInProgress):
		respondWithError(w, http.StatusConflict, "A text blast is already in progress")
	case errors.Is(err, service.ErrFilterStoreUnavailable):
		middleware.LoggerFrom(r.Context(), log).Warn("custom filter store unavailable", zap.Error(err))
		respondProblem(w, http.StatusServiceUnavailable, "Error", "Failed to load custom filters.")
	default:
		middleware.LoggerFrom(r.Context(), log).Error("unexpected service error", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

func decodeJSON(r *http.Request, target interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// parseID reads the numeric {id} route parameter
func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
