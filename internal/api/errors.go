package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/miradorstack/opsboard/internal/utils"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// FieldError describes one rejected field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

var statusByCode = map[string]int{
	"VALIDATION":    http.StatusBadRequest,
	"NOT_FOUND":     http.StatusNotFound,
	"INVALID_STATE": http.StatusConflict,
	"UNAUTHORIZED":  http.StatusUnauthorized,
	"NOT_AVAILABLE": http.StatusServiceUnavailable,
}

// StatusFor maps an error onto its HTTP status.
func StatusFor(err error) int {
	if status, ok := statusByCode[utils.Code(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	body := ErrorResponse{Message: utils.Message(err), Code: utils.Code(err)}
	if body.Code == "UNKNOWN" {
		body.Code = "SERVER_ERROR"
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		body.Details = fields
	}
	c.AbortWithStatusJSON(StatusFor(err), body)
}

func badRequest(c *gin.Context, err error) {
	writeError(c, utils.NewAppError("decode request", "Invalid request body", fmt.Errorf("%w: %w", utils.ErrValidation, err)))
}
