package logs

import (
	"context"
	"time"
)

const (
	// DefaultEmitInterval is how often the simulated source produces an entry.
	DefaultEmitInterval = 500 * time.Millisecond
	// DefaultBatchWindow is how long entries are buffered before delivery.
	DefaultBatchWindow = 800 * time.Millisecond
)

// Simulated generates entries on an interval and delivers them in time-windowed batches.
type Simulated struct {
	Generator    *Generator
	EmitInterval time.Duration
	BatchWindow  time.Duration
}

// NewSimulated returns a Simulated source with default pacing.
func NewSimulated() *Simulated {
	return &Simulated{Generator: NewGenerator()}
}

// Subscribe implements Source.
func (s *Simulated) Subscribe(_ context.Context, filter StreamFilter, deliver func([]Entry)) (Subscription, error) {
	gen := s.Generator
	if gen == nil {
		gen = NewGenerator()
	}
	emit := s.EmitInterval
	if emit <= 0 {
		emit = DefaultEmitInterval
	}
	window := s.BatchWindow
	if window <= 0 {
		window = DefaultBatchWindow
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := newSubscription(cancel, nil)
	go func() {
		emitTicker := time.NewTicker(emit)
		flushTicker := time.NewTicker(window)
		defer emitTicker.Stop()
		defer flushTicker.Stop()

		var pending []Entry
		for {
			select {
			case <-ctx.Done():
				sub.finish(nil)
				return
			case <-emitTicker.C:
				if e := gen.Next(); filter.Match(e) {
					pending = append(pending, e)
				}
			case <-flushTicker.C:
				if len(pending) == 0 || sub.isStopped() {
					continue
				}
				deliver(pending)
				pending = nil
			}
		}
	}()
	return sub, nil
}
