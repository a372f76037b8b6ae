package backend

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a backend call failed
type ErrorKind string

const (
	// KindTransport covers network failures and non-2xx answers without a usable envelope
	KindTransport ErrorKind = "transport"
	// KindApplication is an envelope with success=false
	KindApplication ErrorKind = "application"
	// KindDecode is a 2xx answer whose body is not a valid envelope
	KindDecode ErrorKind = "decode"
)

// Error is returned by every Client method that fails
type Error struct {
	Op         string
	Kind       ErrorKind
	StatusCode int
	// Message is the backend-supplied error text, if any
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s failure: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s failure (status %d)", e.Op, e.Kind, e.StatusCode)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the backend's own error text when it supplied one,
// and fallback otherwise. Transport details are never shown to operators.
func UserMessage(err error, fallback string) string {
	var be *Error
	if errors.As(err, &be) && be.Kind == KindApplication && be.Message != "" {
		return be.Message
	}
	return fallback
}

// IsApplication reports whether err is a success=false answer from the backend
func IsApplication(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Kind == KindApplication
}
