// Package deployments tracks rollouts through pending, approved, running and a final
// success or failure, with step progress, a log and a transition trail per deployment.
package deployments

import "time"

// Status is the deployment lifecycle position.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRunning  Status = "running"
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
)

// StepStatus tracks one rollout step.
type StepStatus string

const (
	StepIdle    StepStatus = "idle"
	StepRunning StepStatus = "running"
	StepDone    StepStatus = "done"
	StepError   StepStatus = "error"
)

// LogLevel of a deployment log line.
type LogLevel string

const (
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Step is one stage of a rollout.
type Step struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Status StepStatus `json:"status"`
	Log    string     `json:"log"`
}

// LogLine is a rollout log message.
type LogLine struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
	Level   LogLevel  `json:"level"`
	Actor   string    `json:"actor"`
}

// Transition records a status change. From is empty for the creation entry.
type Transition struct {
	At    time.Time `json:"at"`
	Actor string    `json:"actor"`
	From  Status    `json:"from,omitempty"`
	To    Status    `json:"to"`
	Note  string    `json:"note,omitempty"`
}

// Deployment is the domain entity.
type Deployment struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Service   string       `json:"service"`
	Version   string       `json:"version"`
	Status    Status       `json:"status"`
	Progress  int          `json:"progress"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Steps     []Step       `json:"steps"`
	Logs      []LogLine    `json:"logs"`
	Audit     []Transition `json:"audit"`
}

// EntityID implements store.Entity.
func (d Deployment) EntityID() string { return d.ID }

// Sort fields accepted by the list endpoint.
const (
	SortCreatedAt = "createdAt"
	SortUpdatedAt = "updatedAt"
	SortName      = "name"
	SortService   = "service"
	SortStatus    = "status"
)

// Filters narrows the deployment list.
type Filters struct {
	Status  []Status `json:"status,omitempty"`
	Service string   `json:"service,omitempty"`
	Search  string   `json:"search,omitempty"`
}
