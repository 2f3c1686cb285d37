package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/miradorstack/opsboard/internal/metrics"
)

// RetryConfig controls replay of idempotent reads.
type RetryConfig struct {
	// MaxRetries is the number of extra attempts after the first one.
	MaxRetries int
	// BaseDelay is doubled after every attempt.
	BaseDelay time.Duration
	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *slog.Logger
}

// DefaultRetryConfig returns three retries starting at 200ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: 200 * time.Millisecond}
}

// Retry replays GET and HEAD requests that failed in transport or with a retryable 5xx.
func Retry(cfg RetryConfig) Stage {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 200 * time.Millisecond
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			resp, err := next(ctx, req)
			if !req.Idempotent() {
				return resp, err
			}
			for attempt := 1; attempt <= cfg.MaxRetries && retryable(resp, err); attempt++ {
				if ctx.Err() != nil {
					break
				}
				delay := cfg.BaseDelay << (attempt - 1)
				cfg.Logger.Debug("retrying request",
					slog.String("method", req.Method),
					slog.String("path", req.Path),
					slog.Int("attempt", attempt),
					slog.Duration("delay", delay),
				)
				if sleepErr := cfg.Sleep(ctx, delay); sleepErr != nil {
					return nil, sleepErr
				}
				metrics.IncRetry()
				resp, err = next(ctx, req)
			}
			return resp, err
		}
	}
}

func retryable(resp *Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return true
	}
	return resp.Status >= 500 && resp.Status != http.StatusNotImplemented
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
