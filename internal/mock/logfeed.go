package mock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/miradorstack/opsboard/internal/logs"
)

// Log feed pacing used when LogFeedConfig leaves it unset.
const (
	DefaultFeedInterval = 800 * time.Millisecond
	DefaultFeedBatch    = 2
	subscriberBuffer    = 16
)

// Publisher receives every generated batch. logs.NATSPublisher implements it.
type Publisher interface {
	Publish(entries []logs.Entry) error
}

// LogFeedConfig configures a LogFeed.
type LogFeedConfig struct {
	Generator *logs.Generator
	Interval  time.Duration
	BatchSize int
	// Publisher is optional.
	Publisher Publisher
	Logger    *slog.Logger
}

// LogFeed generates synthetic log batches and fans them out to subscribers. Slow
// subscribers miss batches rather than stall the feed.
type LogFeed struct {
	cfg    LogFeedConfig
	logger *slog.Logger

	mu   sync.Mutex
	subs map[int]chan []logs.Entry
	next int
}

// NewLogFeed builds an idle feed; call Run to start it.
func NewLogFeed(cfg LogFeedConfig) *LogFeed {
	if cfg.Generator == nil {
		cfg.Generator = logs.NewGenerator()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultFeedInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultFeedBatch
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LogFeed{cfg: cfg, logger: logger, subs: make(map[int]chan []logs.Entry)}
}

// Run emits a batch every interval until ctx is done, then closes every subscriber.
func (f *LogFeed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()
	defer f.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Emit(f.cfg.Generator.Batch(f.cfg.BatchSize))
		}
	}
}

// Emit publishes batch and hands it to every subscriber.
func (f *LogFeed) Emit(batch []logs.Entry) {
	if len(batch) == 0 {
		return
	}
	if f.cfg.Publisher != nil {
		if err := f.cfg.Publisher.Publish(batch); err != nil {
			f.logger.Warn("failed to publish log batch", slog.Any("error", err))
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subs {
		select {
		case ch <- batch:
		default:
			f.logger.Debug("log subscriber lagging, batch dropped", slog.Int("subscriber", id))
		}
	}
}

// Subscribe registers a subscriber. The channel closes when cancel is called or the feed
// stops.
func (f *LogFeed) Subscribe() (<-chan []logs.Entry, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	ch := make(chan []logs.Entry, subscriberBuffer)
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if c, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(c)
			}
		})
	}
}

// Subscribers reports how many subscribers are attached.
func (f *LogFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *LogFeed) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}
