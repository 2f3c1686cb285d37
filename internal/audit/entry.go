// Package audit records user-initiated actions to durable storage and exposes them as a
// filterable, newest-first trail.
package audit

import (
	"time"

	"github.com/miradorstack/opsboard/internal/utils"
)

// Entry is one recorded action.
type Entry struct {
	ID        string         `json:"id"`
	User      string         `json:"user"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// EntityID implements store.Entity.
func (e Entry) EntityID() string { return e.ID }

// Input describes an action to record. User defaults to the current session user.
type Input struct {
	User     string
	Action   string
	Resource string
	Metadata map[string]any
}

// Sink accepts actions without blocking or failing the caller.
type Sink interface {
	Record(in Input)
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Record(Input) {}

// Filters narrows the trail. Text fields match case-insensitive substrings; the date
// bounds accept RFC3339 or plain dates and are inclusive.
type Filters struct {
	User     string `json:"user,omitempty"`
	Action   string `json:"action,omitempty"`
	Resource string `json:"resource,omitempty"`
	DateFrom string `json:"dateFrom,omitempty"`
	DateTo   string `json:"dateTo,omitempty"`
}

// Match reports whether e satisfies f. Unparseable date bounds are ignored.
func Match(e Entry, f Filters) bool {
	if !utils.ContainsFold(e.User, f.User) ||
		!utils.ContainsFold(e.Action, f.Action) ||
		!utils.ContainsFold(e.Resource, f.Resource) {
		return false
	}
	from, _ := utils.ParseDateBound(f.DateFrom, false)
	to, _ := utils.ParseDateBound(f.DateTo, true)
	return utils.WithinRange(e.Timestamp, from, to)
}
