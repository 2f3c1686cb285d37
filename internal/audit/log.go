package audit

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/miradorstack/opsboard/internal/storage"
	"github.com/miradorstack/opsboard/internal/utils"
)

// StorageKey holds the whole trail as one JSON list, newest first.
const StorageKey = "audit-log"

// DefaultMaxEntries caps the stored trail.
const DefaultMaxEntries = 1000

// Log is the durable trail.
type Log struct {
	mu         sync.Mutex
	provider   storage.Provider
	maxEntries int
}

// NewLog builds a Log over provider keeping at most maxEntries (DefaultMaxEntries when < 1).
func NewLog(provider storage.Provider, maxEntries int) *Log {
	if maxEntries < 1 {
		maxEntries = DefaultMaxEntries
	}
	return &Log{provider: provider, maxEntries: maxEntries}
}

// Append stores e at the head of the trail.
func (l *Log) Append(ctx context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read(ctx)
	if err != nil {
		return err
	}
	entries = append([]Entry{e}, entries...)
	if len(entries) > l.maxEntries {
		entries = entries[:l.maxEntries]
	}
	if err := storage.SetJSON(ctx, l.provider, StorageKey, entries); err != nil {
		return fmt.Errorf("persist audit log: %w", err)
	}
	return nil
}

// List returns every entry, newest first.
func (l *Log) List(ctx context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries, err := l.read(ctx)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(entries)
	return entries, nil
}

// Query returns the entries matching f, newest first.
func (l *Log) Query(ctx context.Context, f Filters) ([]Entry, error) {
	entries, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(entries, func(e Entry) bool { return !Match(e, f) }), nil
}

func (l *Log) read(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := storage.GetJSON(ctx, l.provider, StorageKey, &entries)
	if errors.Is(err, storage.ErrMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load audit log: %w", utils.ErrNotAvailable, err)
	}
	return entries, nil
}

func sortNewestFirst(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}
