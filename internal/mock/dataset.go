package mock

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/miradorstack/opsboard/internal/storage"
	"github.com/miradorstack/opsboard/internal/store"
)

// Storage keys of the persisted datasets.
const (
	IncidentsKey   = "opsboard:incidents:data"
	DeploymentsKey = "opsboard:deployments:data"
)

// dataset is an ordered, persisted slice of records. Callers hold mu while touching items.
type dataset[T any] struct {
	mu       sync.Mutex
	items    []T
	provider storage.Provider
	key      string
	logger   *slog.Logger
}

// loadDataset reads key from provider and falls back to seed when it is missing, empty or
// unreadable. A seeded dataset is written back immediately.
func loadDataset[T any](ctx context.Context, provider storage.Provider, key string, logger *slog.Logger, seed func() []T) *dataset[T] {
	if logger == nil {
		logger = slog.Default()
	}
	ds := &dataset[T]{provider: provider, key: key, logger: logger}
	if provider != nil {
		var items []T
		err := storage.GetJSON(ctx, provider, key, &items)
		switch {
		case err == nil && len(items) > 0:
			ds.items = items
			return ds
		case err != nil && !errors.Is(err, storage.ErrMissing):
			logger.Warn("failed to load mock data", slog.String("key", key), slog.Any("error", err))
		}
	}
	ds.items = seed()
	ds.persist(ctx)
	return ds
}

// persist writes the current items. Failures are logged and otherwise ignored.
func (d *dataset[T]) persist(ctx context.Context) {
	if d.provider == nil {
		return
	}
	if err := storage.SetJSON(ctx, d.provider, d.key, d.items); err != nil {
		d.logger.Warn("failed to persist mock data", slog.String("key", d.key), slog.Any("error", err))
	}
}

func (d *dataset[T]) snapshot() []T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.items)
}

func (d *dataset[T]) find(match func(T) bool) (int, bool) {
	idx := slices.IndexFunc(d.items, match)
	return idx, idx >= 0
}

// paginate filters, sorts and windows items. A page beyond the end is empty.
func paginate[T any, F any](items []T, q store.ListQuery[F], match func(T, F) bool, compare func(a, b T, s store.Sort) int) store.Page[T] {
	filtered := make([]T, 0, len(items))
	for _, it := range items {
		if match(it, q.Filters) {
			filtered = append(filtered, it)
		}
	}
	slices.SortStableFunc(filtered, func(a, b T) int { return compare(a, b, q.Sort) })

	page, size := max(q.Page, 1), q.PageSize
	if size < 1 {
		size = len(filtered)
	}
	start := min((page-1)*size, len(filtered))
	end := min(start+size, len(filtered))
	return store.Page[T]{
		Items:    slices.Clone(filtered[start:end]),
		Total:    len(filtered),
		Page:     page,
		PageSize: size,
	}
}
