package pipeline

import (
	"context"

	"github.com/miradorstack/opsboard/internal/correlation"
)

// Correlate attaches the current correlation id, creating one when none is active.
func Correlate(corr *correlation.Context) Stage {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			return next(ctx, req.WithHeader(correlation.Header, corr.Ensure()))
		}
	}
}
