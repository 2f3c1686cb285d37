package deployments

import "time"

// ToDomain maps a DTO.
func ToDomain(dto DTO) Deployment {
	d := Deployment{
		ID:        dto.ID,
		Name:      dto.Name,
		Service:   dto.Service,
		Version:   dto.Version,
		Status:    Status(dto.Status),
		Progress:  dto.Progress,
		CreatedAt: parseTime(dto.CreatedAt),
		UpdatedAt: parseTime(dto.UpdatedAt),
		Steps:     make([]Step, 0, len(dto.Steps)),
		Logs:      make([]LogLine, 0, len(dto.Logs)),
		Audit:     make([]Transition, 0, len(dto.Audit)),
	}
	for _, s := range dto.Steps {
		d.Steps = append(d.Steps, Step{ID: s.ID, Title: s.Title, Status: StepStatus(s.Status), Log: s.Log})
	}
	for _, l := range dto.Logs {
		d.Logs = append(d.Logs, LogLine{At: parseTime(l.At), Message: l.Message, Level: LogLevel(l.Level), Actor: l.Actor})
	}
	for _, a := range dto.Audit {
		t := Transition{At: parseTime(a.At), Actor: a.Actor, To: Status(a.To), Note: a.Note}
		if a.From != nil {
			t.From = Status(*a.From)
		}
		d.Audit = append(d.Audit, t)
	}
	return d
}

// ToDomainList maps a page of DTOs.
func ToDomainList(dtos []DTO) []Deployment {
	out := make([]Deployment, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, ToDomain(dto))
	}
	return out
}

// ToDTO maps a deployment to its wire form.
func ToDTO(d Deployment) DTO {
	dto := DTO{
		ID:        d.ID,
		Name:      d.Name,
		Service:   d.Service,
		Version:   d.Version,
		Status:    string(d.Status),
		Progress:  d.Progress,
		CreatedAt: formatTime(d.CreatedAt),
		UpdatedAt: formatTime(d.UpdatedAt),
		Steps:     make([]StepDTO, 0, len(d.Steps)),
		Logs:      make([]LogDTO, 0, len(d.Logs)),
		Audit:     make([]AuditDTO, 0, len(d.Audit)),
	}
	for _, s := range d.Steps {
		dto.Steps = append(dto.Steps, StepDTO{ID: s.ID, Title: s.Title, Status: string(s.Status), Log: s.Log})
	}
	for _, l := range d.Logs {
		dto.Logs = append(dto.Logs, LogDTO{At: formatTime(l.At), Message: l.Message, Level: string(l.Level), Actor: l.Actor})
	}
	for _, a := range d.Audit {
		entry := AuditDTO{At: formatTime(a.At), Actor: a.Actor, To: string(a.To), Note: a.Note}
		if a.From != "" {
			from := string(a.From)
			entry.From = &from
		}
		dto.Audit = append(dto.Audit, entry)
	}
	return dto
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
