package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/miradorstack/opsboard/internal/correlation"
)

const fallbackMessage = "Unexpected error"

type errorBody struct {
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Details json.RawMessage `json:"details"`
	Errors  json.RawMessage `json:"errors"`
}

// NormalizeErrors turns transport failures and error statuses into *Error and logs them.
func NormalizeErrors(corr *correlation.Context, logger *slog.Logger) Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			resp, err := next(ctx, req)
			if err == nil && resp != nil && resp.Status < http.StatusBadRequest {
				return resp, nil
			}
			if existing, ok := AsError(err); ok {
				return nil, existing
			}

			normalized := normalize(req, resp, err, corr.Ensure())
			logger.Error("request failed",
				slog.String("method", req.Method),
				slog.String("path", normalized.Path),
				slog.Int("status", normalized.Status),
				slog.String("code", normalized.Code),
				slog.String("message", normalized.Message),
				slog.String("correlation_id", normalized.CorrelationID),
			)
			return nil, normalized
		}
	}
}

func normalize(req *Request, resp *Response, cause error, correlationID string) *Error {
	out := &Error{
		Code:          CodeUnknown,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
		Path:          req.Path,
		cause:         cause,
	}
	if resp == nil {
		out.Message = fallbackMessage
		return out
	}

	out.Status = resp.Status
	var body errorBody
	if len(resp.Body) > 0 && json.Unmarshal(resp.Body, &body) == nil {
		out.Message = body.Message
		if body.Code != "" {
			out.Code = body.Code
		}
		out.Details = decodeDetails(body.Details)
		if out.Details == nil {
			out.Details = decodeDetails(body.Errors)
		}
	}
	if out.Message == "" {
		out.Message = http.StatusText(resp.Status)
	}
	if out.Message == "" {
		out.Message = fallbackMessage
	}
	return out
}

func decodeDetails(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}
