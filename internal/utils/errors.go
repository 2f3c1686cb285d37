package utils

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the pipeline, the stores and the mock backend.
var (
	// ErrValidation is a client-side rejection that never reaches the network.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState signals that the entity's status disallows the action.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnauthorized signals a 401 that survived token refresh.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotAvailable signals a transport failure: no response was received.
	ErrNotAvailable = errors.New("not available")
	// ErrServer signals a 5xx response.
	ErrServer = errors.New("server error")
	// ErrUnknown covers everything else.
	ErrUnknown = errors.New("unknown error")
)

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// Message extracts the human-facing message of err, falling back to err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Msg != "" {
		return appErr.Msg
	}
	return err.Error()
}

// Code maps err onto the wire code used by the mock backend error bodies.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrNotAvailable):
		return "NOT_AVAILABLE"
	case errors.Is(err, ErrServer):
		return "SERVER_ERROR"
	default:
		return "UNKNOWN"
	}
}
