package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/opsboard/internal/storage"
)

func TestRecorderPersistsNewestFirst(t *testing.T) {
	ctx := context.Background()
	provider := storage.NewMemoryProvider()
	log := NewLog(provider, 0)

	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rec := NewRecorder(log, RecorderConfig{
		CurrentUser: func() string { return "admin@test.com" },
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
	})
	rec.Record(Input{Action: "login", Resource: "session"})
	rec.Record(Input{Action: "create_incident", Resource: "incident", Metadata: map[string]any{"incidentId": "inc-1", "token": "secret"}})
	require.NoError(t, rec.Close(ctx))

	entries, err := log.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "create_incident", entries[0].Action)
	assert.Equal(t, "admin@test.com", entries[0].User)
	assert.Equal(t, "***redacted***", entries[0].Metadata["token"])
	assert.NotEmpty(t, entries[0].ID)

	// A fresh log over the same storage sees the same trail.
	again, err := NewLog(provider, 0).List(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, again)
}

func TestRecorderDefaultsToSystemUser(t *testing.T) {
	ctx := context.Background()
	log := NewLog(storage.NewMemoryProvider(), 0)
	rec := NewRecorder(log, RecorderConfig{})
	rec.Record(Input{Action: "logout", Resource: "session"})
	require.NoError(t, rec.Close(ctx))

	entries, err := log.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "system", entries[0].User)
}

func TestRecordAfterCloseIsDropped(t *testing.T) {
	ctx := context.Background()
	log := NewLog(storage.NewMemoryProvider(), 0)
	rec := NewRecorder(log, RecorderConfig{})
	require.NoError(t, rec.Close(ctx))
	require.NoError(t, rec.Close(ctx))

	assert.NotPanics(t, func() { rec.Record(Input{Action: "late"}) })
	entries, err := log.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type brokenProvider struct{ storage.Provider }

func (brokenProvider) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("io error")
}

func TestRecorderSwallowsStorageFailures(t *testing.T) {
	log := NewLog(brokenProvider{Provider: storage.NewMemoryProvider()}, 0)
	rec := NewRecorder(log, RecorderConfig{})
	assert.NotPanics(t, func() { rec.Record(Input{Action: "login"}) })
	require.NoError(t, rec.Close(context.Background()))
}

func TestLogCapsEntries(t *testing.T) {
	ctx := context.Background()
	log := NewLog(storage.NewMemoryProvider(), 3)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, log.Append(ctx, Entry{ID: string(rune('a' + i)), Timestamp: base.Add(time.Duration(i) * time.Hour)}))
	}
	entries, err := log.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "e", entries[0].ID)
	assert.Equal(t, "c", entries[2].ID)
}

func TestQueryFilters(t *testing.T) {
	ctx := context.Background()
	log := NewLog(storage.NewMemoryProvider(), 0)
	day := func(d int) time.Time { return time.Date(2024, 5, d, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, log.Append(ctx, Entry{ID: "1", User: "admin@test.com", Action: "approve_deployment", Resource: "deployment", Timestamp: day(1)}))
	require.NoError(t, log.Append(ctx, Entry{ID: "2", User: "user@test.com", Action: "create_incident", Resource: "incident", Timestamp: day(2)}))
	require.NoError(t, log.Append(ctx, Entry{ID: "3", User: "admin@test.com", Action: "change_incident_status", Resource: "incident", Timestamp: day(3)}))

	got, err := log.Query(ctx, Filters{User: "ADMIN"})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1"}, ids(got))

	got, err = log.Query(ctx, Filters{Resource: "incident", DateTo: "2024-05-02"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(got))

	got, err = log.Query(ctx, Filters{DateFrom: "2024-05-02T00:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2"}, ids(got))
}

func TestStoreFiltersClientSide(t *testing.T) {
	ctx := context.Background()
	log := NewLog(storage.NewMemoryProvider(), 0)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, log.Append(ctx, Entry{ID: "1", Action: "login", Timestamp: base}))
	require.NoError(t, log.Append(ctx, Entry{ID: "2", Action: "logout", Timestamp: base.Add(time.Hour)}))
	require.NoError(t, log.Append(ctx, Entry{ID: "3", Action: "login", Timestamp: base.Add(2 * time.Hour)}))

	s, err := NewStore(log, 10, nil)
	require.NoError(t, err)
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, []string{"3", "2", "1"}, ids(s.Visible()))

	s.UpdateFilters(ctx, func(f *Filters) { f.Action = "login" })
	assert.Equal(t, []string{"3", "1"}, ids(s.Visible()))
	assert.Equal(t, 2, s.Snapshot().Pagination.Total)
	assert.Len(t, s.Snapshot().Items, 3)
}

func ids(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}
