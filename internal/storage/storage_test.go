package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryProviderRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider()

	_, err := p.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrMissing)

	require.NoError(t, p.Set(ctx, "k", []byte("v"), 0))
	got, err := p.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	got[0] = 'x'
	again, _ := p.Get(ctx, "k")
	require.Equal(t, []byte("v"), again, "returned slice must be a copy")

	require.NoError(t, p.Del(ctx, "k"))
	_, err = p.Get(ctx, "k")
	require.ErrorIs(t, err, ErrMissing)
}

func TestMemoryProviderExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	p := NewMemoryProvider()
	p.now = func() time.Time { return now }

	require.NoError(t, p.Set(ctx, "k", []byte("v"), time.Minute))
	_, err := p.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = p.Get(ctx, "k")
	require.True(t, errors.Is(err, ErrMissing))
}

func TestBadgerProviderInMemory(t *testing.T) {
	ctx := context.Background()
	p, err := NewBadgerProvider(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Get(ctx, "audit-log")
	require.ErrorIs(t, err, ErrMissing)

	require.NoError(t, p.Set(ctx, "audit-log", []byte(`[]`), 0))
	got, err := p.Get(ctx, "audit-log")
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(got))

	require.NoError(t, p.Del(ctx, "audit-log"))
	_, err = p.Get(ctx, "audit-log")
	require.ErrorIs(t, err, ErrMissing)
}

func TestBadgerProviderPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p, err := NewBadgerProvider(BadgerConfig{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, p.Set(ctx, "opsboard:auth:tokens", []byte(`{"accessToken":"a"}`), 0))
	require.NoError(t, p.Close())

	reopened, err := NewBadgerProvider(BadgerConfig{Path: dir})
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(ctx, "opsboard:auth:tokens")
	require.NoError(t, err)
	require.JSONEq(t, `{"accessToken":"a"}`, string(got))
}

func TestBadgerProviderRequiresPath(t *testing.T) {
	_, err := NewBadgerProvider(BadgerConfig{})
	require.Error(t, err)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider()

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, SetJSON(ctx, p, "p", payload{Name: "payments"}))

	var out payload
	require.NoError(t, GetJSON(ctx, p, "p", &out))
	require.Equal(t, "payments", out.Name)

	require.ErrorIs(t, GetJSON(ctx, p, "absent", &out), ErrMissing)

	require.NoError(t, p.Set(ctx, "bad", []byte("{"), 0))
	err := GetJSON(ctx, p, "bad", &out)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrMissing)
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	p, err := Open(ctx, Options{Driver: "memory"})
	require.NoError(t, err)
	require.IsType(t, &MemoryProvider{}, p)

	p, err = Open(ctx, Options{Driver: DriverBadger, Path: t.TempDir()})
	require.NoError(t, err)
	require.IsType(t, &BadgerProvider{}, p)
	require.NoError(t, p.Close())

	_, err = Open(ctx, Options{Driver: "sqlite"})
	require.Error(t, err)
}

func TestValkeyProviderRequiresAddr(t *testing.T) {
	_, err := NewValkeyProvider(context.Background(), ValkeyConfig{})
	require.Error(t, err)
}

func TestValkeyKeyPrefix(t *testing.T) {
	p := &ValkeyProvider{prefix: "opsboard:"}
	require.Equal(t, "opsboard:audit-log", p.key("audit-log"))
	p.prefix = ""
	require.Equal(t, "audit-log", p.key("audit-log"))
}
