package incidents

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
	"github.com/miradorstack/opsboard/internal/store"
	"github.com/miradorstack/opsboard/internal/utils"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	p := pipeline.New(
		pipeline.NewHTTPTransport(srv.URL, 5*time.Second).Handle,
		pipeline.NormalizeErrors(correlation.New(), nil),
	)
	return NewClient(p, Mapper{})
}

func TestClientListSendsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/incidents", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "auth", r.URL.Query().Get("service"))
		_ = json.NewEncoder(w).Encode(ListResponseDTO{
			Incidents: []DTO{{ID: "inc-1", Status: "open", Service: "auth", SLAStatus: "ok"}},
			Total:     11,
			Page:      2,
			PageSize:  10,
		})
	})

	page, err := c.List(context.Background(), store.ListQuery[Filters]{
		Page: 2, PageSize: 10, Filters: Filters{Service: "auth"},
	})
	require.NoError(t, err)
	assert.Equal(t, 11, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, StatusOpen, page.Items[0].Status)
}

func TestClientActionEndpoints(t *testing.T) {
	var seen []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		_ = json.NewEncoder(w).Encode(DTO{ID: "inc-1", Status: "investigating"})
	})
	ctx := context.Background()

	_, err := c.ChangeStatus(ctx, "inc-1", StatusInvestigating)
	require.NoError(t, err)
	_, err = c.Assign(ctx, "inc-1", "alice")
	require.NoError(t, err)
	_, err = c.AddComment(ctx, "inc-1", "hi", "bob")
	require.NoError(t, err)
	title := "t"
	_, err = c.Update(ctx, "inc-1", UpdatePayload{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"POST /api/incidents/inc-1/status",
		"POST /api/incidents/inc-1/assign",
		"POST /api/incidents/inc-1/comments",
		"PATCH /api/incidents/inc-1",
	}, seen)
}

func TestClientNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Incident not found","code":"NOT_FOUND"}`))
	})

	_, err := c.Get(context.Background(), "missing")
	require.ErrorIs(t, err, utils.ErrNotFound)
	perr, ok := pipeline.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Incident not found", perr.Message)
}
