package logs

import (
	"context"
	"sync"
)

// Source delivers batches of entries matching filter until the subscription is stopped.
// Batches are delivered newest last. ctx bounds setup only; the stream runs until Stop or
// until the source fails, which closes Done and sets Err.
type Source interface {
	Subscribe(ctx context.Context, filter StreamFilter, deliver func([]Entry)) (Subscription, error)
}

// Subscription is a running stream.
type Subscription interface {
	// Stop releases the stream. It is idempotent and returns once no further batch
	// will be delivered.
	Stop()
	// Done is closed when the stream ends, by Stop or by failure.
	Done() <-chan struct{}
	// Err reports the failure that ended the stream, nil after Stop.
	Err() error
}

// subscription is the common Subscription implementation. The producing goroutine calls
// finish exactly once when it exits. cancel and onStop are optional.
type subscription struct {
	cancel  context.CancelFunc
	onStop  func()
	done    chan struct{}
	stopped chan struct{}

	mu   sync.Mutex
	err  error
	once sync.Once
}

func newSubscription(cancel context.CancelFunc, onStop func()) *subscription {
	return &subscription{
		cancel:  cancel,
		onStop:  onStop,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (s *subscription) Stop() {
	s.once.Do(func() {
		close(s.stopped)
		if s.cancel != nil {
			s.cancel()
		}
		if s.onStop != nil {
			s.onStop()
		}
	})
	<-s.done
}

func (s *subscription) Done() <-chan struct{} { return s.done }

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *subscription) isStopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

// finish records err unless the stream was stopped on purpose, then closes Done.
func (s *subscription) finish(err error) {
	if !s.isStopped() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}
	close(s.done)
}
