// Package tokens owns the access/refresh token pair of the running client.
package tokens

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/miradorstack/opsboard/internal/storage"
)

// StorageKey is where the pair is persisted between runs.
const StorageKey = "opsboard:auth:tokens"

// Pair is the credential pair issued by login and refresh.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Empty reports whether the pair holds no access token.
func (p Pair) Empty() bool { return p.AccessToken == "" }

// Store keeps the current Pair in memory and mirrors it to durable storage.
// Storage failures are logged and never surface to callers.
type Store struct {
	mu       sync.RWMutex
	pair     Pair
	provider storage.Provider
	logger   *slog.Logger
}

// NewStore creates a Store. provider may be nil for a purely in-memory store.
func NewStore(provider storage.Provider, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{provider: provider, logger: logger}
}

// Load rehydrates the pair persisted by a previous run.
func (s *Store) Load(ctx context.Context) Pair {
	if s.provider == nil {
		return s.Pair()
	}
	var pair Pair
	if err := storage.GetJSON(ctx, s.provider, StorageKey, &pair); err != nil {
		if !errors.Is(err, storage.ErrMissing) {
			s.logger.Warn("token rehydrate failed", slog.Any("error", err))
		}
		return s.Pair()
	}
	s.mu.Lock()
	s.pair = pair
	s.mu.Unlock()
	return pair
}

// Pair returns a copy of the held tokens.
func (s *Store) Pair() Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair
}

// AccessToken returns the held access token or "".
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair.AccessToken
}

// RefreshToken returns the held refresh token or "".
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair.RefreshToken
}

// Set replaces the held pair and persists it.
func (s *Store) Set(ctx context.Context, pair Pair) {
	s.mu.Lock()
	s.pair = pair
	s.mu.Unlock()
	if s.provider == nil {
		return
	}
	if err := storage.SetJSON(ctx, s.provider, StorageKey, pair); err != nil {
		s.logger.Warn("token persist failed", slog.Any("error", err))
	}
}

// Clear forgets the pair in memory and in storage.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.pair = Pair{}
	s.mu.Unlock()
	if s.provider == nil {
		return
	}
	if err := s.provider.Del(ctx, StorageKey); err != nil {
		s.logger.Warn("token clear failed", slog.Any("error", err))
	}
}
