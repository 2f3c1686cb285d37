package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/opsboard/internal/metrics"
	"github.com/miradorstack/opsboard/internal/utils"
)

// DefaultQueueSize bounds the number of entries waiting to be written.
const DefaultQueueSize = 256

// RecorderConfig wires a Recorder.
type RecorderConfig struct {
	QueueSize int
	// CurrentUser resolves the actor when Input.User is empty. "system" when nil or blank.
	CurrentUser func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// Recorder appends entries to a Log from a single background goroutine. Record never
// blocks: a full queue or a storage failure is logged and the entry dropped.
type Recorder struct {
	log    *Log
	cfg    RecorderConfig
	logger *slog.Logger

	queue chan Entry
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewRecorder starts the writer goroutine. Close stops it after draining the queue.
func NewRecorder(log *Log, cfg RecorderConfig) *Recorder {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		log:    log,
		cfg:    cfg,
		logger: logger,
		queue:  make(chan Entry, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Record implements Sink.
func (r *Recorder) Record(in Input) {
	entry := Entry{
		ID:        uuid.NewString(),
		User:      in.User,
		Action:    in.Action,
		Resource:  in.Resource,
		Timestamp: r.cfg.Now().UTC(),
		Metadata:  utils.RedactMap(in.Metadata),
	}
	if entry.User == "" {
		entry.User = r.currentUser()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop(entry, "recorder closed")
		return
	}
	select {
	case r.queue <- entry:
	default:
		r.drop(entry, "queue full")
	}
}

// Close stops accepting entries and waits until queued ones are written or ctx ends.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for entry := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.log.Append(ctx, entry); err != nil {
			r.drop(entry, err.Error())
		}
		cancel()
	}
}

func (r *Recorder) drop(e Entry, reason string) {
	metrics.IncAuditDropped()
	r.logger.Warn("audit entry dropped",
		slog.String("action", e.Action),
		slog.String("resource", e.Resource),
		slog.String("reason", reason),
	)
}

func (r *Recorder) currentUser() string {
	if r.cfg.CurrentUser != nil {
		if u := r.cfg.CurrentUser(); u != "" {
			return u
		}
	}
	return "system"
}
