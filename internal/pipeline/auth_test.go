package pipeline

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/opsboard/internal/storage"
	"github.com/miradorstack/opsboard/internal/tokens"
)

func newTokenStore(t *testing.T, pair tokens.Pair) *tokens.Store {
	t.Helper()
	store := tokens.NewStore(storage.NewMemoryProvider(), nil)
	store.Set(context.Background(), pair)
	return store
}

func TestExemptPathsNeverCarryBearer(t *testing.T) {
	store := newTokenStore(t, tokens.Pair{AccessToken: "access", RefreshToken: "refresh"})
	transport := &recordingTransport{respond: func(int, *Request) (*Response, error) {
		return status(http.StatusOK), nil
	}}
	p := New(transport.Handle, Authenticate(AuthConfig{Tokens: store}))

	for _, path := range []string{"/api/auth/login", "/api/auth/refresh", "/api/auth/mfa/verify", "/auth/login/"} {
		req := NewRequest(http.MethodPost, path, nil, nil)
		req.Header.Set("Authorization", "Bearer smuggled")
		_, err := p.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, transport.last().Header.Get("Authorization"), path)
	}

	_, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/api/incidents", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, "Bearer access", transport.last().Header.Get("Authorization"))
}

func TestNoTokenMeansNoHeader(t *testing.T) {
	store := tokens.NewStore(nil, nil)
	transport := &recordingTransport{respond: func(int, *Request) (*Response, error) {
		return status(http.StatusOK), nil
	}}
	p := New(transport.Handle, Authenticate(AuthConfig{Tokens: store}))

	_, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/api/incidents", nil, nil))
	require.NoError(t, err)
	assert.Empty(t, transport.last().Header.Get("Authorization"))
}

func TestUnauthorizedWithoutRefreshTokenClearsTokens(t *testing.T) {
	store := newTokenStore(t, tokens.Pair{AccessToken: "access"})
	var refreshes atomic.Int32
	transport := &recordingTransport{respond: func(int, *Request) (*Response, error) {
		return status(http.StatusUnauthorized), nil
	}}
	p := New(transport.Handle, Authenticate(AuthConfig{
		Tokens: store,
		Refresh: func(context.Context, string) (tokens.Pair, error) {
			refreshes.Add(1)
			return tokens.Pair{}, nil
		},
	}))

	resp, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/api/incidents", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Zero(t, refreshes.Load())
	assert.True(t, store.Pair().Empty())
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	const callers = 10
	store := newTokenStore(t, tokens.Pair{AccessToken: "old", RefreshToken: "refresh-1"})

	var rejected atomic.Int32
	allRejected := make(chan struct{})
	transport := &recordingTransport{respond: func(_ int, req *Request) (*Response, error) {
		if req.Header.Get("Authorization") == "Bearer new" {
			return status(http.StatusOK), nil
		}
		if rejected.Add(1) == callers {
			close(allRejected)
		}
		return status(http.StatusUnauthorized), nil
	}}

	var refreshes atomic.Int32
	p := New(transport.Handle, Authenticate(AuthConfig{
		Tokens: store,
		Refresh: func(_ context.Context, refreshToken string) (tokens.Pair, error) {
			refreshes.Add(1)
			assert.Equal(t, "refresh-1", refreshToken)
			select {
			case <-allRejected:
			case <-time.After(2 * time.Second):
			}
			return tokens.Pair{AccessToken: "new", RefreshToken: "refresh-2"}, nil
		},
	}))

	var wg sync.WaitGroup
	statuses := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/api/incidents", nil, nil))
			if assert.NoError(t, err) {
				statuses[i] = resp.Status
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), refreshes.Load())
	for _, s := range statuses {
		assert.Equal(t, http.StatusOK, s)
	}
	assert.Equal(t, tokens.Pair{AccessToken: "new", RefreshToken: "refresh-2"}, store.Pair())
}

func TestLateUnauthorizedReusesRefreshedToken(t *testing.T) {
	store := newTokenStore(t, tokens.Pair{AccessToken: "old", RefreshToken: "r"})
	var refreshes atomic.Int32
	transport := &recordingTransport{respond: func(n int, req *Request) (*Response, error) {
		if n == 1 {
			// Simulates a concurrent refresh completing while this request was in flight.
			store.Set(context.Background(), tokens.Pair{AccessToken: "fresh", RefreshToken: "r2"})
			return status(http.StatusUnauthorized), nil
		}
		assert.Equal(t, "Bearer fresh", req.Header.Get("Authorization"))
		return status(http.StatusOK), nil
	}}
	p := New(transport.Handle, Authenticate(AuthConfig{
		Tokens: store,
		Refresh: func(context.Context, string) (tokens.Pair, error) {
			refreshes.Add(1)
			return tokens.Pair{}, errors.New("should not be called")
		},
	}))

	resp, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/api/deployments", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Zero(t, refreshes.Load())
}

func TestRefreshFailureFailsEveryWaiterAndExpiresSession(t *testing.T) {
	const callers = 5
	store := newTokenStore(t, tokens.Pair{AccessToken: "old", RefreshToken: "r"})

	var rejected atomic.Int32
	allRejected := make(chan struct{})
	transport := &recordingTransport{respond: func(int, *Request) (*Response, error) {
		if rejected.Add(1) == callers {
			close(allRejected)
		}
		return status(http.StatusUnauthorized), nil
	}}

	var refreshes, expired atomic.Int32
	p := New(transport.Handle, Authenticate(AuthConfig{
		Tokens: store,
		Refresh: func(context.Context, string) (tokens.Pair, error) {
			refreshes.Add(1)
			select {
			case <-allRejected:
			case <-time.After(2 * time.Second):
			}
			return tokens.Pair{}, errors.New("refresh token revoked")
		},
		OnSessionExpired: func(context.Context) { expired.Add(1) },
	}))

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/api/incidents", nil, nil))
			if assert.NoError(t, err) {
				assert.Equal(t, http.StatusUnauthorized, resp.Status)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, int32(1), expired.Load())
	assert.True(t, store.Pair().Empty())
	assert.Equal(t, callers, transport.calls(), "no request is replayed after a failed refresh")
}

func TestSuccessfulRefreshRetriesOnce(t *testing.T) {
	store := newTokenStore(t, tokens.Pair{AccessToken: "old", RefreshToken: "r"})
	transport := &recordingTransport{respond: func(int, *Request) (*Response, error) {
		return status(http.StatusUnauthorized), nil
	}}
	p := New(transport.Handle, Authenticate(AuthConfig{
		Tokens: store,
		Refresh: func(context.Context, string) (tokens.Pair, error) {
			return tokens.Pair{AccessToken: "new"}, nil
		},
	}))

	resp, err := p.Do(context.Background(), NewRequest(http.MethodGet, "/api/incidents", nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, 2, transport.calls())
	assert.Equal(t, "r", store.RefreshToken(), "refresh token is kept when the server does not rotate it")
}
