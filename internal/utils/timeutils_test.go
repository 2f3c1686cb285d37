package utils

import (
	"testing"
	"time"
)

func TestParseDateBound(t *testing.T) {
	start, err := ParseDateBound("2024-03-01", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	end, err := ParseDateBound("2024-03-01", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !end.After(start) || end.Sub(start) < 23*time.Hour {
		t.Fatalf("end of day not applied: %s .. %s", start, end)
	}

	exact, err := ParseDateBound("2024-03-01T10:00:00Z", true)
	if err != nil || exact.Hour() != 10 {
		t.Fatalf("rfc3339 bound not honoured: %v %v", exact, err)
	}

	blank, err := ParseDateBound("  ", false)
	if err != nil || !blank.IsZero() {
		t.Fatalf("blank bound should be zero")
	}
	if _, err := ParseDateBound("yesterday", false); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestWithinRange(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if !WithinRange(base, time.Time{}, time.Time{}) {
		t.Fatalf("open range should match")
	}
	if WithinRange(base, base.Add(time.Minute), time.Time{}) {
		t.Fatalf("before lower bound should not match")
	}
	if WithinRange(base, time.Time{}, base.Add(-time.Minute)) {
		t.Fatalf("after upper bound should not match")
	}
	if !WithinRange(base, base, base) {
		t.Fatalf("bounds are inclusive")
	}
}

func TestContainsFold(t *testing.T) {
	if !ContainsFold("Payments API", "payments") || !ContainsFold("x", "") || ContainsFold("auth", "billing") {
		t.Fatalf("ContainsFold mismatch")
	}
}

func TestParseRFC3339(t *testing.T) {
	if _, err := ParseRFC3339(""); err == nil {
		t.Fatalf("expected error for empty value")
	}
	if _, err := ParseRFC3339("2024-03-01T10:00:00Z"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
