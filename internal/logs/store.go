package logs

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/miradorstack/opsboard/internal/store"
	"github.com/miradorstack/opsboard/internal/utils"
)

const (
	// MaxEntries caps the buffer; the oldest entries fall off.
	MaxEntries = 2000
	// DefaultPageSize for the buffered view.
	DefaultPageSize = 50

	streamError = "Stream error"
)

// StoreConfig wires a Store.
type StoreConfig struct {
	Source   Source
	PageSize int
	Logger   *slog.Logger
}

// Store buffers streamed entries. Filtering happens client-side; level, service and
// search are also pushed down to the source when a stream starts.
type Store struct {
	*store.Collection[Entry, Filters]

	source Source
	logger *slog.Logger

	// mu serialises Start, Stop and filter restarts.
	mu        sync.Mutex
	sub       Subscription
	streaming atomic.Bool
	// gen identifies the live stream; batches from older streams are dropped.
	// feedMu orders generation changes against appends.
	feedMu sync.Mutex
	gen    atomic.Uint64
}

// NewStore builds a client-mode log store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Source == nil {
		return nil, errors.New("logs store requires a source")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	c, err := store.New(store.Config[Entry, Filters]{
		Name:           "logs",
		Mode:           store.ModeClient,
		Match:          Match,
		DefaultFilters: DefaultFilters(),
		PageSize:       pageSize,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	return &Store{Collection: c, source: cfg.Source, logger: logger}, nil
}

// Streaming reports whether a stream is active.
func (s *Store) Streaming() bool { return s.streaming.Load() }

// Start opens a stream with the current filters. It is a no-op while streaming.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx)
}

func (s *Store) startLocked(ctx context.Context) error {
	if s.streaming.Load() {
		return nil
	}
	s.ClearError()
	gen := s.nextGen()
	filter := s.Snapshot().Filters.stream()

	sub, err := s.source.Subscribe(ctx, filter, func(batch []Entry) { s.append(gen, batch) })
	if err != nil {
		s.logger.Error("log stream failed", slog.Any("error", err))
		s.Collection.Fail(streamError)
		return utils.NewAppError("start log stream", streamError, err)
	}
	s.sub = sub
	s.streaming.Store(true)
	go s.watch(gen, sub)
	s.logger.Debug("log stream started", slog.Uint64("gen", gen))
	return nil
}

// watch turns a failed stream into the stopped state with an error.
func (s *Store) watch(gen uint64, sub Subscription) {
	<-sub.Done()
	err := sub.Err()
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen.Load() != gen {
		return
	}
	s.logger.Error("log stream failed", slog.Any("error", err))
	s.sub = nil
	s.streaming.Store(false)
	s.Collection.Fail(streamError)
}

// Stop releases the stream. Safe to call when not streaming.
func (s *Store) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Store) stopLocked() {
	s.nextGen()
	if s.sub != nil {
		s.sub.Stop()
		s.sub = nil
	}
	s.streaming.Store(false)
}

// Toggle starts a stopped stream or stops a running one.
func (s *Store) Toggle(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streaming.Load() {
		s.stopLocked()
		return nil
	}
	return s.startLocked(ctx)
}

// UpdateFilters applies change and, when streaming, restarts the stream with the new
// filters as one step.
func (s *Store) UpdateFilters(ctx context.Context, change func(f *Filters)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.streaming.Load() {
		s.Collection.UpdateFilters(ctx, change)
		return nil
	}
	s.stopLocked()
	s.Collection.UpdateFilters(ctx, change)
	return s.startLocked(ctx)
}

// nextGen retires the current stream. Once it returns no batch from an older stream
// reaches the buffer.
func (s *Store) nextGen() uint64 {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	return s.gen.Add(1)
}

// Clear drops every buffered entry.
func (s *Store) Clear() {
	s.Patch(func(st *store.State[Entry, Filters]) {
		st.Items = nil
		st.Selected = nil
	})
}

// append prepends batch newest first, dropping entries outside the date range and masking
// sensitive context keys.
func (s *Store) append(gen uint64, batch []Entry) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	if s.gen.Load() != gen {
		return
	}
	s.Patch(func(st *store.State[Entry, Filters]) {
		incoming := make([]Entry, 0, len(batch))
		for _, e := range batch {
			if !st.Filters.inRange(e.Timestamp) {
				continue
			}
			e.Context = utils.RedactMap(e.Context)
			incoming = append(incoming, e)
		}
		slices.Reverse(incoming)
		next := append(incoming, st.Items...)
		if len(next) > MaxEntries {
			next = next[:MaxEntries]
		}
		st.Items = next
	})
}
