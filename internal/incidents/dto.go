package incidents

// TimelineEventDTO is the wire form of a timeline entry.
type TimelineEventDTO struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Message string         `json:"message"`
	At      string         `json:"at"`
	Actor   string         `json:"actor"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// DTO is the wire form of an incident.
type DTO struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Severity        string             `json:"severity"`
	Status          string             `json:"status"`
	Service         string             `json:"service"`
	AffectedSystems []string           `json:"affected_systems"`
	CreatedAt       string             `json:"created_at"`
	UpdatedAt       string             `json:"updated_at"`
	AssignedTo      string             `json:"assigned_to,omitempty"`
	SLADueAt        string             `json:"sla_due_at,omitempty"`
	SLAStatus       string             `json:"sla_status,omitempty"`
	Tags            []string           `json:"tags,omitempty"`
	Timeline        []TimelineEventDTO `json:"timeline"`
}

// CreateDTO is the wire form of CreatePayload.
type CreateDTO struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Severity        string   `json:"severity"`
	Service         string   `json:"service"`
	AffectedSystems []string `json:"affected_systems"`
	SLADueAt        string   `json:"sla_due_at,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	AssignedTo      string   `json:"assigned_to,omitempty"`
}

// UpdateDTO is the wire form of UpdatePayload.
type UpdateDTO struct {
	Title           *string  `json:"title,omitempty"`
	Description     *string  `json:"description,omitempty"`
	Severity        *string  `json:"severity,omitempty"`
	Status          *string  `json:"status,omitempty"`
	Service         *string  `json:"service,omitempty"`
	AffectedSystems []string `json:"affected_systems,omitempty"`
	AssignedTo      *string  `json:"assigned_to,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	SLADueAt        *string  `json:"sla_due_at,omitempty"`
}

// ListResponseDTO is one page of incidents.
type ListResponseDTO struct {
	Incidents []DTO `json:"incidents"`
	Total     int   `json:"total"`
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
}

// StatusRequest changes the status.
type StatusRequest struct {
	Status string `json:"status"`
}

// AssignRequest changes the assignee.
type AssignRequest struct {
	UserID string `json:"user_id"`
}

// CommentRequest appends a comment to the timeline.
type CommentRequest struct {
	Message string `json:"message"`
	Actor   string `json:"actor,omitempty"`
}
