package logs

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// StreamPath is where the mock backend serves the log stream.
const StreamPath = "/api/logs/stream"

// EncodeStreamFilter renders f as stream query parameters.
func EncodeStreamFilter(f StreamFilter) url.Values {
	v := url.Values{}
	for _, l := range f.Levels {
		v.Add("level", string(l))
	}
	if f.Service != "" {
		v.Set("service", f.Service)
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	return v
}

// DecodeStreamFilter parses parameters produced by EncodeStreamFilter. Comma separated
// levels are accepted too.
func DecodeStreamFilter(v url.Values) StreamFilter {
	f := StreamFilter{Service: v.Get("service"), Search: v.Get("search")}
	for _, raw := range v["level"] {
		for _, l := range strings.Split(raw, ",") {
			if l = strings.TrimSpace(l); l != "" {
				f.Levels = append(f.Levels, Level(l))
			}
		}
	}
	return f
}

// WebSocketSource tails a websocket endpoint that pushes JSON arrays of DTOs.
type WebSocketSource struct {
	// URL is the ws:// or wss:// stream address.
	URL    string
	Dialer *websocket.Dialer
	// Token returns the bearer token to present; optional.
	Token  func() string
	Logger *slog.Logger
}

// Subscribe implements Source.
func (w *WebSocketSource) Subscribe(ctx context.Context, filter StreamFilter, deliver func([]Entry)) (Subscription, error) {
	u, err := url.Parse(w.URL)
	if err != nil {
		return nil, fmt.Errorf("parse stream url: %w", err)
	}
	q := u.Query()
	for k, vals := range EncodeStreamFilter(filter) {
		q[k] = vals
	}
	u.RawQuery = q.Encode()

	header := http.Header{}
	if w.Token != nil {
		if token := w.Token(); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}
	dialer := w.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial log stream: %w", err)
	}

	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sub := newSubscription(nil, func() {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	})

	go func() {
		defer conn.Close()
		for {
			var batch []DTO
			if err := conn.ReadJSON(&batch); err != nil {
				if !sub.isStopped() {
					logger.Warn("log stream closed", slog.Any("error", err))
				}
				sub.finish(fmt.Errorf("read log stream: %w", err))
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
		}
	}()
	return sub, nil
}
