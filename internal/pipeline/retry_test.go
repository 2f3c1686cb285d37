package pipeline

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func retryPipeline(transport *recordingTransport, sleeper *sleepRecorder) *Pipeline {
	cfg := DefaultRetryConfig()
	cfg.Sleep = sleeper.sleep
	return New(transport.Handle, Retry(cfg))
}

func TestRetryGetRecoversAfterThreeServiceUnavailable(t *testing.T) {
	transport := &recordingTransport{respond: func(n int, _ *Request) (*Response, error) {
		if n <= 3 {
			return status(http.StatusServiceUnavailable), nil
		}
		return status(http.StatusOK), nil
	}}
	sleeper := &sleepRecorder{}

	resp, err := retryPipeline(transport, sleeper).Do(context.Background(), NewRequest(http.MethodGet, "/api/incidents", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, 4, transport.calls())
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}, sleeper.delays)
}

func TestRetryPostIsNeverReplayed(t *testing.T) {
	transport := &recordingTransport{respond: func(int, *Request) (*Response, error) {
		return status(http.StatusServiceUnavailable), nil
	}}
	sleeper := &sleepRecorder{}

	resp, err := retryPipeline(transport, sleeper).Do(context.Background(), NewRequest(http.MethodPost, "/api/incidents", nil, map[string]any{"title": "x"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	assert.Equal(t, 1, transport.calls())
	assert.Empty(t, sleeper.delays)
}

func TestRetrySkipsNonRetryableStatuses(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusNotImplemented} {
		transport := &recordingTransport{respond: func(int, *Request) (*Response, error) {
			return status(code), nil
		}}
		resp, err := retryPipeline(transport, &sleepRecorder{}).Do(context.Background(), NewRequest(http.MethodGet, "/api/incidents", nil, nil))
		require.NoError(t, err)
		assert.Equal(t, code, resp.Status)
		assert.Equal(t, 1, transport.calls(), "status %d", code)
	}
}

func TestRetryExhaustsBudgetOnTransportErrors(t *testing.T) {
	boom := errors.New("connection refused")
	transport := &recordingTransport{respond: func(int, *Request) (*Response, error) {
		return nil, boom
	}}
	sleeper := &sleepRecorder{}

	_, err := retryPipeline(transport, sleeper).Do(context.Background(), NewRequest(http.MethodHead, "/healthz", nil, nil))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 4, transport.calls())
	assert.Len(t, sleeper.delays, 3)
}

func TestRetryStopsWhenContextIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	transport := &recordingTransport{respond: func(int, *Request) (*Response, error) {
		cancel()
		return status(http.StatusBadGateway), nil
	}}
	cfg := DefaultRetryConfig()
	p := New(transport.Handle, Retry(cfg))

	resp, err := p.Do(ctx, NewRequest(http.MethodGet, "/api/incidents", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.Status)
	assert.Equal(t, 1, transport.calls())
}

func TestSleepContextHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
