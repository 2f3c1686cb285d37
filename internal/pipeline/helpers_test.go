package pipeline

import (
	"context"
	"net/http"
	"sync"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(rt roundTripFunc) *http.Client {
	return &http.Client{Transport: rt}
}

// recordingTransport answers with respond and remembers every request it saw.
type recordingTransport struct {
	mu       sync.Mutex
	requests []*Request
	respond  func(n int, req *Request) (*Response, error)
}

func (t *recordingTransport) Handle(_ context.Context, req *Request) (*Response, error) {
	t.mu.Lock()
	t.requests = append(t.requests, req)
	n := len(t.requests)
	t.mu.Unlock()
	return t.respond(n, req)
}

func (t *recordingTransport) calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

func (t *recordingTransport) last() *Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requests[len(t.requests)-1]
}

func status(code int) *Response {
	return &Response{Status: code, Header: make(http.Header)}
}
