// Package logs tails service logs from a pluggable Source into a capped, newest-first
// buffer that is filtered client-side.
package logs

import (
	"slices"
	"time"

	"github.com/miradorstack/opsboard/internal/utils"
)

// Level is a log severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Levels lists every level, lowest first.
var Levels = []Level{LevelDebug, LevelInfo, LevelWarn, LevelError}

// Entry is one log line.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Service   string         `json:"service"`
	Context   map[string]any `json:"context,omitempty"`
}

// EntityID implements store.Entity.
func (e Entry) EntityID() string { return e.ID }

// Filters narrows the buffered entries.
type Filters struct {
	Search   string  `json:"search,omitempty"`
	Levels   []Level `json:"levels,omitempty"`
	Service  string  `json:"service,omitempty"`
	DateFrom string  `json:"dateFrom,omitempty"`
	DateTo   string  `json:"dateTo,omitempty"`
}

// DefaultFilters hides debug output.
func DefaultFilters() Filters {
	return Filters{Levels: []Level{LevelInfo, LevelWarn, LevelError}}
}

// Match reports whether e satisfies f.
func Match(e Entry, f Filters) bool {
	if !f.stream().Match(e) {
		return false
	}
	return f.inRange(e.Timestamp)
}

func (f Filters) inRange(ts time.Time) bool {
	from, _ := utils.ParseDateBound(f.DateFrom, false)
	to, _ := utils.ParseDateBound(f.DateTo, true)
	return utils.WithinRange(ts, from, to)
}

func (f Filters) stream() StreamFilter {
	return StreamFilter{Levels: slices.Clone(f.Levels), Service: f.Service, Search: f.Search}
}

// StreamFilter is the subset of Filters a Source applies before delivery.
type StreamFilter struct {
	Levels  []Level `json:"levels,omitempty"`
	Service string  `json:"service,omitempty"`
	Search  string  `json:"search,omitempty"`
}

// Match reports whether e passes the filter. Service matches exactly, search is a
// case-insensitive substring of the message.
func (f StreamFilter) Match(e Entry) bool {
	if len(f.Levels) > 0 && !slices.Contains(f.Levels, e.Level) {
		return false
	}
	if f.Service != "" && e.Service != f.Service {
		return false
	}
	return utils.ContainsFold(e.Message, f.Search)
}

// DTO is the wire form of an entry.
type DTO struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Service   string         `json:"service"`
	Context   map[string]any `json:"context,omitempty"`
}

// ToDomain maps a DTO.
func ToDomain(dto DTO) Entry {
	ts, err := time.Parse(time.RFC3339Nano, dto.Timestamp)
	if err != nil {
		ts = time.Time{}
	}
	return Entry{
		ID:        dto.ID,
		Timestamp: ts,
		Level:     Level(dto.Level),
		Message:   dto.Message,
		Service:   dto.Service,
		Context:   dto.Context,
	}
}

// ToDomainList maps a batch.
func ToDomainList(dtos []DTO) []Entry {
	out := make([]Entry, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, ToDomain(dto))
	}
	return out
}

// ToDTO maps an entry to its wire form.
func ToDTO(e Entry) DTO {
	return DTO{
		ID:        e.ID,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Level:     string(e.Level),
		Message:   e.Message,
		Service:   e.Service,
		Context:   e.Context,
	}
}

// ToDTOList maps a batch to its wire form.
func ToDTOList(entries []Entry) []DTO {
	out := make([]DTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToDTO(e))
	}
	return out
}
