package incidents

import (
	"time"
)

// Mapper converts between wire and domain forms. The zero value uses time.Now and the
// default SLA threshold.
type Mapper struct {
	Now           func() time.Time
	RiskThreshold time.Duration
}

func (m Mapper) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m Mapper) threshold() time.Duration {
	if m.RiskThreshold > 0 {
		return m.RiskThreshold
	}
	return DefaultRiskThreshold
}

// ToDomain maps a DTO and fills the SLA status when the server omitted it.
func (m Mapper) ToDomain(dto DTO) Incident {
	inc := Incident{
		ID:              dto.ID,
		Title:           dto.Title,
		Description:     dto.Description,
		Severity:        Severity(dto.Severity),
		Status:          Status(dto.Status),
		Service:         dto.Service,
		AffectedSystems: nonNil(dto.AffectedSystems),
		CreatedAt:       parseTime(dto.CreatedAt),
		UpdatedAt:       parseTime(dto.UpdatedAt),
		SLADueAt:        parseOptionalTime(dto.SLADueAt),
		SLAStatus:       SLAStatus(dto.SLAStatus),
		AssignedTo:      dto.AssignedTo,
		Tags:            nonNil(dto.Tags),
		Timeline:        make([]TimelineEvent, 0, len(dto.Timeline)),
	}
	for _, ev := range dto.Timeline {
		inc.Timeline = append(inc.Timeline, TimelineEvent{
			ID:      ev.ID,
			Type:    EventType(ev.Type),
			Message: ev.Message,
			At:      parseTime(ev.At),
			Actor:   ev.Actor,
			Meta:    ev.Meta,
		})
	}
	if inc.SLAStatus == "" {
		inc.SLAStatus = ComputeSLAWithThreshold(inc.Status, inc.SLADueAt, inc.UpdatedAt, m.now(), m.threshold())
	}
	return inc
}

// ToDomainList maps a page of DTOs.
func (m Mapper) ToDomainList(dtos []DTO) []Incident {
	out := make([]Incident, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, m.ToDomain(dto))
	}
	return out
}

// ToDTO maps a domain incident to its wire form.
func ToDTO(inc Incident) DTO {
	dto := DTO{
		ID:              inc.ID,
		Title:           inc.Title,
		Description:     inc.Description,
		Severity:        string(inc.Severity),
		Status:          string(inc.Status),
		Service:         inc.Service,
		AffectedSystems: nonNil(inc.AffectedSystems),
		CreatedAt:       formatTime(inc.CreatedAt),
		UpdatedAt:       formatTime(inc.UpdatedAt),
		AssignedTo:      inc.AssignedTo,
		SLAStatus:       string(inc.SLAStatus),
		Tags:            inc.Tags,
		Timeline:        make([]TimelineEventDTO, 0, len(inc.Timeline)),
	}
	if inc.SLADueAt != nil {
		dto.SLADueAt = formatTime(*inc.SLADueAt)
	}
	for _, ev := range inc.Timeline {
		dto.Timeline = append(dto.Timeline, TimelineEventDTO{
			ID:      ev.ID,
			Type:    string(ev.Type),
			Message: ev.Message,
			At:      formatTime(ev.At),
			Actor:   ev.Actor,
			Meta:    ev.Meta,
		})
	}
	return dto
}

// ToDTOList maps a page of incidents.
func ToDTOList(items []Incident) []DTO {
	out := make([]DTO, 0, len(items))
	for _, inc := range items {
		out = append(out, ToDTO(inc))
	}
	return out
}

// ToCreateDTO maps a create payload.
func ToCreateDTO(p CreatePayload) CreateDTO {
	dto := CreateDTO{
		Title:           p.Title,
		Description:     p.Description,
		Severity:        string(p.Severity),
		Service:         p.Service,
		AffectedSystems: nonNil(p.AffectedSystems),
		Tags:            p.Tags,
		AssignedTo:      p.AssignedTo,
	}
	if p.SLADueAt != nil {
		dto.SLADueAt = formatTime(*p.SLADueAt)
	}
	return dto
}

// ToUpdateDTO maps an update payload.
func ToUpdateDTO(p UpdatePayload) UpdateDTO {
	dto := UpdateDTO{
		Title:           p.Title,
		Description:     p.Description,
		Service:         p.Service,
		AffectedSystems: p.AffectedSystems,
		AssignedTo:      p.AssignedTo,
		Tags:            p.Tags,
	}
	if p.Severity != nil {
		s := string(*p.Severity)
		dto.Severity = &s
	}
	if p.Status != nil {
		s := string(*p.Status)
		dto.Status = &s
	}
	if p.SLADueAt != nil {
		s := formatTime(*p.SLADueAt)
		dto.SLADueAt = &s
	}
	return dto
}

// FromCreateDTO is the server-side inverse of ToCreateDTO.
func FromCreateDTO(dto CreateDTO) CreatePayload {
	return CreatePayload{
		Title:           dto.Title,
		Description:     dto.Description,
		Severity:        Severity(dto.Severity),
		Service:         dto.Service,
		AffectedSystems: dto.AffectedSystems,
		Tags:            dto.Tags,
		AssignedTo:      dto.AssignedTo,
		SLADueAt:        parseOptionalTime(dto.SLADueAt),
	}
}

// FromUpdateDTO is the server-side inverse of ToUpdateDTO.
func FromUpdateDTO(dto UpdateDTO) UpdatePayload {
	p := UpdatePayload{
		Title:           dto.Title,
		Description:     dto.Description,
		Service:         dto.Service,
		AffectedSystems: dto.AffectedSystems,
		AssignedTo:      dto.AssignedTo,
		Tags:            dto.Tags,
	}
	if dto.Severity != nil {
		s := Severity(*dto.Severity)
		p.Severity = &s
	}
	if dto.Status != nil {
		s := Status(*dto.Status)
		p.Status = &s
	}
	if dto.SLADueAt != nil {
		p.SLADueAt = parseOptionalTime(*dto.SLADueAt)
	}
	return p
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseOptionalTime(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil
	}
	return &t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
