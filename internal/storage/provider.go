package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Provider is the durable key-value capability the client persists its state into:
// tokens, persisted filters, the audit trail and the mock datasets.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
}

// ErrMissing signals that a key was not found.
var ErrMissing = errors.New("storage key missing")

// GetJSON loads key and decodes it into out. It returns ErrMissing untouched.
func GetJSON(ctx context.Context, p Provider, key string, out any) error {
	raw, err := p.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes value and stores it under key without expiry.
func SetJSON(ctx context.Context, p Provider, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return p.Set(ctx, key, raw, 0)
}
