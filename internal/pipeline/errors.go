package pipeline

import (
	"errors"
	"net/http"
	"time"

	"github.com/miradorstack/opsboard/internal/utils"
)

// CodeUnknown is used when the response carries no error code.
const CodeUnknown = "UNKNOWN"

// Error is the single failure shape callers see once a request left the pipeline.
type Error struct {
	Message       string    `json:"message"`
	Status        int       `json:"status"`
	Code          string    `json:"code"`
	CorrelationID string    `json:"correlationId"`
	Timestamp     time.Time `json:"timestamp"`
	Path          string    `json:"path"`
	Details       any       `json:"details"`

	cause error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the taxonomy sentinel matching the status and code, plus the
// transport cause when there was no response.
func (e *Error) Unwrap() []error {
	errs := []error{e.kind()}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

func (e *Error) kind() error {
	switch e.Code {
	case "VALIDATION":
		return utils.ErrValidation
	case "NOT_FOUND":
		return utils.ErrNotFound
	case "INVALID_STATE":
		return utils.ErrInvalidState
	case "UNAUTHORIZED":
		return utils.ErrUnauthorized
	}
	switch {
	case e.Status == 0:
		return utils.ErrNotAvailable
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return utils.ErrValidation
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return utils.ErrUnauthorized
	case e.Status == http.StatusNotFound:
		return utils.ErrNotFound
	case e.Status == http.StatusConflict:
		return utils.ErrInvalidState
	case e.Status >= 500:
		return utils.ErrServer
	default:
		return utils.ErrUnknown
	}
}

// AsError extracts a pipeline error from err.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
