package service

import (
	"errors"

	"github.com/thetyagiayush/warhol-ringmaster/internal/backend"
)

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrFilterStoreUnavailable is returned when custom filters cannot be read
	// or written
	ErrFilterStoreUnavailable = errors.New("custom filter store unavailable")

	// ErrConfirmationRequired is returned when a destructive action was not confirmed
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrDispatchInProgress is returned when a blast is started while another runs
	ErrDispatchInProgress = errors.New("text blast already in progress")

	// ErrMessageTooLong is returned when the trimmed blast message exceeds the cap
	ErrMessageTooLong = errors.New("message too long")

	// ErrNoRecipients is returned when a blast is started with an empty selection
	ErrNoRecipients = errors.New("no recipients selected")

	// ErrDraftNotFound is returned when a duplicated draft key is unknown
	ErrDraftNotFound = errors.New("draft not found")
)

// ValidationError is a rejected input detected before any backend call.
// Title and Description are shown to the operator as-is.
type ValidationError struct {
	Title       string
	Description string
	// Err is an optional, more specific sentinel
	Err error
}

func (e *ValidationError) Error() string {
	return e.Title + ": " + e.Description
}

// Is matches ErrInvalidInput and the wrapped sentinel
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput || (e.Err != nil && target == e.Err)
}

func newValidationError(title, description string) *ValidationError {
	return &ValidationError{Title: title, Description: description}
}

// BackendError is a failed calling backend request with the operator-facing
// text already resolved: the backend's own message when it sent one,
// the operation's generic message otherwise.
type BackendError struct {
	Title       string
	Description string
	Err         error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func newBackendError(err error, fallback string) *BackendError {
	return &BackendError{
		Title:       "Error",
		Description: backend.UserMessage(err, fallback),
		Err:         err,
	}
}
