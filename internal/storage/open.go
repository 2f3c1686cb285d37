package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Driver names accepted by Open.
const (
	DriverBadger   = "badger"
	DriverMemory   = "memory"
	DriverValkey   = "valkey"
	DriverPostgres = "postgres"
)

// Options selects and configures a Provider.
type Options struct {
	Driver      string
	Path        string
	DatabaseURL string
	Valkey      ValkeyConfig
	Logger      *slog.Logger
}

// Open builds the Provider named by opts.Driver.
func Open(ctx context.Context, opts Options) (Provider, error) {
	switch strings.ToLower(opts.Driver) {
	case "", DriverBadger:
		return NewBadgerProvider(BadgerConfig{Path: opts.Path, SyncWrites: true, Logger: opts.Logger})
	case DriverMemory:
		return NewMemoryProvider(), nil
	case DriverValkey:
		return NewValkeyProvider(ctx, opts.Valkey)
	case DriverPostgres:
		return NewPostgresProvider(ctx, opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
