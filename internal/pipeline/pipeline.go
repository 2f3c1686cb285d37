// Package pipeline runs every outbound API call through an ordered chain of stages:
// sanitization, correlation, authentication with single-flight refresh, retry for
// idempotent reads and error normalization.
package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/miradorstack/opsboard/internal/metrics"
)

// Handler sends a request and returns the response the next hop produced.
type Handler func(ctx context.Context, req *Request) (*Response, error)

// Stage wraps a Handler with one transform.
type Stage func(next Handler) Handler

// Pipeline is a composed chain ending in a transport.
type Pipeline struct {
	handler Handler
}

// New composes stages around transport. The first stage is the outermost one.
func New(transport Handler, stages ...Stage) *Pipeline {
	h := transport
	for i := len(stages) - 1; i >= 0; i-- {
		h = stages[i](h)
	}
	return &Pipeline{handler: h}
}

// Do sends req through every stage.
func (p *Pipeline) Do(ctx context.Context, req *Request) (*Response, error) {
	started := time.Now()
	resp, err := p.handler(ctx, req)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.ObserveRequest(req.Method, time.Since(started), outcome)
	return resp, err
}

// DoJSON sends a request built from the arguments and decodes a successful body into out.
// out may be nil when the caller does not need the body.
func (p *Pipeline) DoJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := p.Do(ctx, NewRequest(method, path, query, body))
	if err != nil {
		return err
	}
	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
