package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerRedactsSensitiveAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", true)

	logger.Info("login",
		slog.String("user", "admin@test.com"),
		slog.String("password", "admin123"),
		slog.Any("context", map[string]any{"Authorization": "Bearer abc", "service": "auth"}),
	)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if record["password"] != RedactedValue {
		t.Fatalf("password not redacted: %v", record["password"])
	}
	ctx, _ := record["context"].(map[string]any)
	if ctx["Authorization"] != RedactedValue || ctx["service"] != "auth" {
		t.Fatalf("unexpected context: %+v", ctx)
	}
	if strings.Contains(buf.String(), "admin123") {
		t.Fatalf("secret leaked: %s", buf.String())
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", false)
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level: %s", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn missing: %s", buf.String())
	}
}

func TestRedactMapDeep(t *testing.T) {
	in := map[string]any{
		"token": "t",
		"items": []any{map[string]any{"api_key": "k", "n": 1}, "plain"},
	}
	out := RedactMap(in)
	if out["token"] != RedactedValue {
		t.Fatalf("token not redacted")
	}
	nested := out["items"].([]any)[0].(map[string]any)
	if nested["api_key"] != RedactedValue || nested["n"] != 1 {
		t.Fatalf("nested not redacted: %+v", nested)
	}
	if in["token"] != "t" {
		t.Fatalf("input mutated")
	}
	if RedactMap(nil) != nil {
		t.Fatalf("nil map should stay nil")
	}
}
