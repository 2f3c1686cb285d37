package deployments

// StepDTO is the wire form of a Step.
type StepDTO struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Log    string `json:"log"`
}

// LogDTO is the wire form of a LogLine.
type LogDTO struct {
	At      string `json:"at"`
	Message string `json:"message"`
	Level   string `json:"level"`
	Actor   string `json:"actor"`
}

// AuditDTO is the wire form of a Transition; From is null for the creation entry.
type AuditDTO struct {
	At    string  `json:"at"`
	Actor string  `json:"actor"`
	From  *string `json:"from"`
	To    string  `json:"to"`
	Note  string  `json:"note,omitempty"`
}

// DTO is the wire form of a deployment.
type DTO struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Service   string     `json:"service"`
	Version   string     `json:"version"`
	Status    string     `json:"status"`
	Progress  int        `json:"progress"`
	CreatedAt string     `json:"created_at"`
	UpdatedAt string     `json:"updated_at"`
	Steps     []StepDTO  `json:"steps"`
	Logs      []LogDTO   `json:"logs"`
	Audit     []AuditDTO `json:"audit"`
}

// ListResponseDTO is the list endpoint body.
type ListResponseDTO struct {
	Deployments []DTO `json:"deployments"`
	Total       int   `json:"total"`
	Page        int   `json:"page,omitempty"`
	PageSize    int   `json:"page_size,omitempty"`
}

// ActionRequest is the body of approve and start.
type ActionRequest struct {
	Actor string `json:"actor" binding:"required"`
}

// ProgressRequest is the body of the progress endpoint.
type ProgressRequest struct {
	Progress  int    `json:"progress" binding:"min=0,max=100"`
	StepIndex int    `json:"step_index" binding:"min=0"`
	Actor     string `json:"actor" binding:"required"`
}

// FinishRequest is the body of the finish endpoint.
type FinishRequest struct {
	Status string `json:"status" binding:"required,oneof=success failed" validate:"required,oneof=success failed"`
	Actor  string `json:"actor" binding:"required"`
}
