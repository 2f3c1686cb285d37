package pipeline

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// Request is one outbound call. Stages treat it as immutable and Clone before changing it.
type Request struct {
	Method string
	// Path is relative to the transport base URL, e.g. "/api/incidents".
	Path   string
	Query  url.Values
	Header http.Header
	// Body is any JSON-encodable value, or nil.
	Body any
}

// NewRequest builds a request with an empty header set.
func NewRequest(method, path string, query url.Values, body any) *Request {
	return &Request{
		Method: strings.ToUpper(method),
		Path:   path,
		Query:  query,
		Header: make(http.Header),
		Body:   body,
	}
}

// Clone returns a copy whose header and query can be changed without touching r.
// The body is shared; stages that rewrite it assign a new value.
func (r *Request) Clone() *Request {
	out := *r
	if r.Header != nil {
		out.Header = r.Header.Clone()
	} else {
		out.Header = make(http.Header)
	}
	if r.Query != nil {
		out.Query = make(url.Values, len(r.Query))
		for k, v := range r.Query {
			out.Query[k] = append([]string(nil), v...)
		}
	}
	return &out
}

// WithHeader returns a clone carrying key=value.
func (r *Request) WithHeader(key, value string) *Request {
	out := r.Clone()
	out.Header.Set(key, value)
	return out
}

// WithBody returns a clone carrying body.
func (r *Request) WithBody(body any) *Request {
	out := r.Clone()
	out.Body = body
	return out
}

// Idempotent reports whether the request is a read that may be replayed.
func (r *Request) Idempotent() bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

// Response is what the transport received. Non-2xx statuses are responses, not errors.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// Decode unmarshals the body into out. Empty bodies leave out untouched.
func (r *Response) Decode(out any) error {
	if r == nil || out == nil || len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, out)
}
