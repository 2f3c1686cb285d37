package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"
	"regexp"
	"strings"
)

var (
	scriptBlock  = regexp.MustCompile(`(?i)<script[^>]*>[\s\S]*?</script>`)
	eventHandler = regexp.MustCompile(`(?i)on[a-z]+\s*=\s*"[^"]*"`)
)

// Sanitize strips script blocks and inline event handlers from every string in the
// request body. Method, path and headers pass through unchanged.
func Sanitize() Stage {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if req.Body == nil {
				return next(ctx, req)
			}
			return next(ctx, req.WithBody(SanitizeValue(req.Body)))
		}
	}
}

// SanitizeString removes markup that could execute in a browser and trims the result.
func SanitizeString(s string) string {
	s = scriptBlock.ReplaceAllString(s, "")
	s = eventHandler.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// SanitizeValue deep-copies v with every string cleaned. Structs and typed
// collections are normalised through their JSON form first.
func SanitizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return SanitizeString(t)
	case json.Number, bool, float64, float32, int, int64, int32, uint, uint64:
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = SanitizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = SanitizeValue(val)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return v
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
	case reflect.String:
		return SanitizeString(rv.String())
	default:
		return v
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return v
	}
	return SanitizeValue(generic)
}
