package audit

import (
	"context"
	"log/slog"

	"github.com/miradorstack/opsboard/internal/store"
)

// Store is the audit trail view: the full trail filtered client-side, newest first.
type Store struct {
	*store.Collection[Entry, Filters]
}

// NewStore builds the view over log.
func NewStore(log *Log, pageSize int, logger *slog.Logger) (*Store, error) {
	c, err := store.New(store.Config[Entry, Filters]{
		Name: "audit",
		Mode: store.ModeClient,
		Lister: store.ListerFunc[Entry, Filters](func(ctx context.Context, _ store.ListQuery[Filters]) (store.Page[Entry], error) {
			entries, err := log.List(ctx)
			if err != nil {
				return store.Page[Entry]{}, err
			}
			return store.Page[Entry]{Items: entries, Total: len(entries)}, nil
		}),
		Match:       Match,
		Less:        newestFirst,
		DefaultSort: store.Sort{Field: "timestamp", Direction: store.Desc},
		PageSize:    pageSize,
		LoadError:   "Failed to load audit log",
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return &Store{Collection: c}, nil
}

func newestFirst(a, b Entry, s store.Sort) bool {
	if s.Direction == store.Asc {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.Timestamp.After(b.Timestamp)
}
