package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/miradorstack/opsboard/internal/storage"
)

// Persisted is the part of a collection that survives restarts.
type Persisted[F any] struct {
	Filters F    `json:"filters"`
	Sort    Sort `json:"sort"`
}

// Persistence saves and restores filters. Implementations log failures and behave as
// empty or no-op; they never fail the caller.
type Persistence[F any] interface {
	Load(ctx context.Context) (Persisted[F], bool)
	Save(ctx context.Context, p Persisted[F])
	Clear(ctx context.Context)
}

// KVPersistence stores Persisted values as JSON under one key.
type KVPersistence[F any] struct {
	provider storage.Provider
	key      string
	logger   *slog.Logger
}

// NewKVPersistence builds a Persistence over provider.
func NewKVPersistence[F any](provider storage.Provider, key string, logger *slog.Logger) *KVPersistence[F] {
	if logger == nil {
		logger = slog.Default()
	}
	return &KVPersistence[F]{provider: provider, key: key, logger: logger}
}

// Load implements Persistence.
func (p *KVPersistence[F]) Load(ctx context.Context) (Persisted[F], bool) {
	var out Persisted[F]
	if err := storage.GetJSON(ctx, p.provider, p.key, &out); err != nil {
		if !errors.Is(err, storage.ErrMissing) {
			p.logger.Warn("failed to load persisted filters", slog.String("key", p.key), slog.Any("error", err))
		}
		return Persisted[F]{}, false
	}
	return out, true
}

// Save implements Persistence.
func (p *KVPersistence[F]) Save(ctx context.Context, v Persisted[F]) {
	if err := storage.SetJSON(ctx, p.provider, p.key, v); err != nil {
		p.logger.Warn("failed to persist filters", slog.String("key", p.key), slog.Any("error", err))
	}
}

// Clear implements Persistence.
func (p *KVPersistence[F]) Clear(ctx context.Context) {
	if err := p.provider.Del(ctx, p.key); err != nil {
		p.logger.Warn("failed to clear persisted filters", slog.String("key", p.key), slog.Any("error", err))
	}
}
