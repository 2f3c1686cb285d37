// Package incidents tracks operational incidents: a server-paginated collection with a
// status transition graph, SLA tracking, timeline comments and persisted filters.
package incidents

import (
	"time"
)

// Severity ranks impact.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank orders severities, critical highest.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Status is the incident lifecycle position.
type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusMitigated     Status = "mitigated"
	StatusResolved      Status = "resolved"
	StatusClosed        Status = "closed"
)

// Rank orders statuses, open highest.
func (s Status) Rank() int {
	switch s {
	case StatusOpen:
		return 5
	case StatusInvestigating:
		return 4
	case StatusMitigated:
		return 3
	case StatusResolved:
		return 2
	case StatusClosed:
		return 1
	default:
		return 0
	}
}

// Done reports whether the incident no longer consumes its SLA.
func (s Status) Done() bool {
	return s == StatusResolved || s == StatusClosed
}

// SLAStatus is the derived risk of missing the due date.
type SLAStatus string

const (
	SLAOk       SLAStatus = "ok"
	SLARisk     SLAStatus = "risk"
	SLABreached SLAStatus = "breached"
)

// EventType classifies timeline entries.
type EventType string

const (
	EventStatusChange EventType = "status-change"
	EventAssignment   EventType = "assignment"
	EventComment      EventType = "comment"
	EventUpdate       EventType = "update"
)

// TimelineEvent is one entry in an incident's history.
type TimelineEvent struct {
	ID      string         `json:"id"`
	Type    EventType      `json:"type"`
	Message string         `json:"message"`
	At      time.Time      `json:"at"`
	Actor   string         `json:"actor"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Incident is the domain entity.
type Incident struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Severity        Severity        `json:"severity"`
	Status          Status          `json:"status"`
	Service         string          `json:"service"`
	AffectedSystems []string        `json:"affectedSystems"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	SLADueAt        *time.Time      `json:"slaDueAt,omitempty"`
	SLAStatus       SLAStatus       `json:"slaStatus"`
	AssignedTo      string          `json:"assignedTo,omitempty"`
	Tags            []string        `json:"tags"`
	Timeline        []TimelineEvent `json:"timeline"`
}

// EntityID implements store.Entity.
func (i Incident) EntityID() string { return i.ID }

// CreatePayload is validated before it is sent.
type CreatePayload struct {
	Title           string     `json:"title" validate:"required,max=200"`
	Description     string     `json:"description" validate:"required"`
	Severity        Severity   `json:"severity" validate:"required,oneof=critical high medium low"`
	Service         string     `json:"service" validate:"required"`
	AffectedSystems []string   `json:"affectedSystems" validate:"dive,required"`
	Tags            []string   `json:"tags,omitempty"`
	AssignedTo      string     `json:"assignedTo,omitempty"`
	SLADueAt        *time.Time `json:"slaDueAt,omitempty"`
}

// UpdatePayload carries only the fields to change.
type UpdatePayload struct {
	Title           *string    `json:"title,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Severity        *Severity  `json:"severity,omitempty" validate:"omitempty,oneof=critical high medium low"`
	Status          *Status    `json:"status,omitempty"`
	Service         *string    `json:"service,omitempty"`
	AffectedSystems []string   `json:"affectedSystems,omitempty"`
	AssignedTo      *string    `json:"assignedTo,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	SLADueAt        *time.Time `json:"slaDueAt,omitempty"`
}

// Sort fields accepted by the list endpoint.
const (
	SortCreatedAt = "createdAt"
	SortUpdatedAt = "updatedAt"
	SortSeverity  = "severity"
	SortStatus    = "status"
	SortService   = "service"
)

// Filters narrows the incident list.
type Filters struct {
	Status   []Status   `json:"status,omitempty"`
	Severity []Severity `json:"severity,omitempty"`
	Service  string     `json:"service,omitempty"`
	DateFrom string     `json:"dateFrom,omitempty"`
	DateTo   string     `json:"dateTo,omitempty"`
	Search   string     `json:"search,omitempty"`
}

// Active reports whether any criterion is set.
func (f Filters) Active() bool {
	return len(f.Status) > 0 || len(f.Severity) > 0 || f.Service != "" ||
		f.DateFrom != "" || f.DateTo != "" || f.Search != ""
}
