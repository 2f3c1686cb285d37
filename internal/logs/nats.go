package logs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// DefaultSubject carries log batches on NATS.
const DefaultSubject = "opsboard.logs"

// NATSSource receives JSON arrays of DTOs published on a subject.
type NATSSource struct {
	Conn    *nats.Conn
	Subject string
	Logger  *slog.Logger
}

// Subscribe implements Source.
func (n *NATSSource) Subscribe(_ context.Context, filter StreamFilter, deliver func([]Entry)) (Subscription, error) {
	if n.Conn == nil {
		return nil, fmt.Errorf("nats source has no connection")
	}
	subject := n.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := newSubscription(cancel, nil)
	natsSub, err := n.Conn.Subscribe(subject, func(msg *nats.Msg) {
		var batch []DTO
		if err := json.Unmarshal(msg.Data, &batch); err != nil {
			logger.Warn("dropping malformed log batch", slog.String("subject", msg.Subject), slog.Any("error", err))
			return
		}
		var entries []Entry
		for _, e := range ToDomainList(batch) {
			if filter.Match(e) {
				entries = append(entries, e)
			}
		}
		if len(entries) > 0 && !sub.isStopped() {
			deliver(entries)
		}
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	sub.onStop = func() { _ = natsSub.Unsubscribe() }

	go func() {
		<-ctx.Done()
		sub.finish(nil)
	}()
	return sub, nil
}

// NATSPublisher publishes log batches for NATSSource consumers.
type NATSPublisher struct {
	Conn    *nats.Conn
	Subject string
}

// Publish sends entries as one JSON array.
func (p *NATSPublisher) Publish(entries []Entry) error {
	data, err := json.Marshal(ToDTOList(entries))
	if err != nil {
		return err
	}
	subject := p.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	return p.Conn.Publish(subject, data)
}
