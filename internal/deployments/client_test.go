package deployments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/opsboard/internal/correlation"
	"github.com/miradorstack/opsboard/internal/pipeline"
	"github.com/miradorstack/opsboard/internal/utils"
)

func TestClientStartConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/deployments/dep-1/start", r.URL.Path)
		var body ActionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body.Actor)
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"Invalid state","code":"INVALID_STATE"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(pipeline.New(
		pipeline.NewHTTPTransport(srv.URL, time.Second).Handle,
		pipeline.NormalizeErrors(correlation.New(), nil),
	))
	_, err := c.Start(context.Background(), "dep-1", "alice")
	require.ErrorIs(t, err, utils.ErrInvalidState)
}

func TestClientProgressDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body ProgressRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 30, body.Progress)
		assert.Equal(t, 0, body.StepIndex)
		_ = json.NewEncoder(w).Encode(DTO{
			ID: "dep-1", Status: "running", Progress: 30,
			Steps: []StepDTO{{ID: "s1", Status: "running"}},
		})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(pipeline.New(pipeline.NewHTTPTransport(srv.URL, time.Second).Handle))
	d, err := c.Progress(context.Background(), "dep-1", 30, 0, "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, d.Status)
	assert.Equal(t, StepRunning, d.Steps[0].Status)
}
