package mock

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/miradorstack/opsboard/internal/incidents"
	"github.com/miradorstack/opsboard/internal/storage"
	"github.com/miradorstack/opsboard/internal/store"
	"github.com/miradorstack/opsboard/internal/utils"
)

// DefaultSLAWindow is the due date given to incidents created without one.
const DefaultSLAWindow = 4 * time.Hour

var _ incidents.DataAPI = (*IncidentService)(nil)

// IncidentConfig configures an IncidentService.
type IncidentConfig struct {
	Storage       storage.Provider
	RiskThreshold time.Duration
	Now           func() time.Time
	Logger        *slog.Logger
}

// IncidentService serves incidents from a persisted dataset. SLA status is derived on
// every read.
type IncidentService struct {
	data     *dataset[incidents.Incident]
	validate *validator.Validate
	risk     time.Duration
	now      func() time.Time
}

// NewIncidentService loads the dataset, seeding it on first use.
func NewIncidentService(ctx context.Context, cfg IncidentConfig) *IncidentService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &IncidentService{
		data:     loadDataset(ctx, cfg.Storage, IncidentsKey, cfg.Logger, func() []incidents.Incident { return SeedIncidents(now()) }),
		validate: validator.New(),
		risk:     cmp.Or(cfg.RiskThreshold, incidents.DefaultRiskThreshold),
		now:      now,
	}
}

// List implements incidents.DataAPI.
func (s *IncidentService) List(_ context.Context, q store.ListQuery[incidents.Filters]) (store.Page[incidents.Incident], error) {
	items := s.data.snapshot()
	for i := range items {
		items[i] = s.withSLA(items[i])
	}
	return paginate(items, q, incidents.Match, incidents.Compare), nil
}

// Get implements incidents.DataAPI.
func (s *IncidentService) Get(_ context.Context, id string) (incidents.Incident, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	idx, ok := s.data.find(byIncidentID(id))
	if !ok {
		return incidents.Incident{}, incidentNotFound("get", id)
	}
	return s.withSLA(s.data.items[idx]), nil
}

// Create implements incidents.DataAPI. New incidents open with a creation comment and a
// default SLA when none is given.
func (s *IncidentService) Create(ctx context.Context, p incidents.CreatePayload) (incidents.Incident, error) {
	if err := s.validate.Struct(p); err != nil {
		return incidents.Incident{}, utils.NewAppError("create incident", "Invalid incident", fmt.Errorf("%w: %v", utils.ErrValidation, err))
	}
	now := s.now().UTC()
	due := now.Add(DefaultSLAWindow)
	if p.SLADueAt != nil {
		due = p.SLADueAt.UTC()
	}
	actor := p.AssignedTo
	if actor == "" {
		actor = Actor(ctx)
	}
	inc := incidents.Incident{
		ID:              uuid.NewString(),
		Title:           p.Title,
		Description:     p.Description,
		Severity:        p.Severity,
		Status:          incidents.StatusOpen,
		Service:         p.Service,
		AffectedSystems: nonNil(p.AffectedSystems),
		CreatedAt:       now,
		UpdatedAt:       now,
		SLADueAt:        &due,
		AssignedTo:      p.AssignedTo,
		Tags:            nonNil(p.Tags),
		Timeline:        []incidents.TimelineEvent{event(incidents.EventComment, "Incident created", actor, now)},
	}

	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	s.data.items = append([]incidents.Incident{inc}, s.data.items...)
	s.data.persist(ctx)
	return s.withSLA(inc), nil
}

// Update implements incidents.DataAPI. Status and assignee changes append timeline
// events.
func (s *IncidentService) Update(ctx context.Context, id string, p incidents.UpdatePayload) (incidents.Incident, error) {
	if err := s.validate.Struct(p); err != nil {
		return incidents.Incident{}, utils.NewAppError("update incident", "Invalid incident", fmt.Errorf("%w: %v", utils.ErrValidation, err))
	}
	return s.mutate(ctx, "update", id, func(cur incidents.Incident, now time.Time) (incidents.Incident, error) {
		return s.apply(ctx, cur, p, now), nil
	})
}

// Delete implements incidents.DataAPI.
func (s *IncidentService) Delete(ctx context.Context, id string) error {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	idx, ok := s.data.find(byIncidentID(id))
	if !ok {
		return incidentNotFound("delete", id)
	}
	s.data.items = slices.Delete(s.data.items, idx, idx+1)
	s.data.persist(ctx)
	return nil
}

// ChangeStatus implements incidents.DataAPI. Moves outside the transition graph fail with
// utils.ErrInvalidState.
func (s *IncidentService) ChangeStatus(ctx context.Context, id string, status incidents.Status) (incidents.Incident, error) {
	return s.mutate(ctx, "change status", id, func(cur incidents.Incident, now time.Time) (incidents.Incident, error) {
		if !incidents.Transitions.Allowed(cur.Status, status) {
			return cur, utils.NewAppError("change incident status", "Invalid status transition",
				fmt.Errorf("%w: %s to %s", utils.ErrInvalidState, cur.Status, status))
		}
		return s.apply(ctx, cur, incidents.UpdatePayload{Status: &status}, now), nil
	})
}

// Assign implements incidents.DataAPI.
func (s *IncidentService) Assign(ctx context.Context, id, userID string) (incidents.Incident, error) {
	if userID == "" {
		return incidents.Incident{}, utils.NewAppError("assign incident", "Assignee required", utils.ErrValidation)
	}
	return s.mutate(ctx, "assign", id, func(cur incidents.Incident, now time.Time) (incidents.Incident, error) {
		return s.apply(ctx, cur, incidents.UpdatePayload{AssignedTo: &userID}, now), nil
	})
}

// AddComment implements incidents.DataAPI.
func (s *IncidentService) AddComment(ctx context.Context, id, message, actor string) (incidents.Incident, error) {
	if message == "" {
		return incidents.Incident{}, utils.NewAppError("comment incident", "Comment required", utils.ErrValidation)
	}
	if actor == "" {
		actor = Actor(ctx)
	}
	return s.mutate(ctx, "comment", id, func(cur incidents.Incident, now time.Time) (incidents.Incident, error) {
		cur.Timeline = append(slices.Clone(cur.Timeline), event(incidents.EventComment, message, actor, now))
		cur.UpdatedAt = now
		return cur, nil
	})
}

func (s *IncidentService) mutate(ctx context.Context, op, id string, change func(incidents.Incident, time.Time) (incidents.Incident, error)) (incidents.Incident, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	idx, ok := s.data.find(byIncidentID(id))
	if !ok {
		return incidents.Incident{}, incidentNotFound(op, id)
	}
	next, err := change(s.data.items[idx], s.now().UTC())
	if err != nil {
		return incidents.Incident{}, err
	}
	next = s.withSLA(next)
	s.data.items[idx] = next
	s.data.persist(ctx)
	return next, nil
}

// apply merges p into cur. The status event is attributed to the assignee when there is
// one, the assignment event to the new assignee.
func (s *IncidentService) apply(ctx context.Context, cur incidents.Incident, p incidents.UpdatePayload, now time.Time) incidents.Incident {
	next := cur
	next.Timeline = slices.Clone(cur.Timeline)

	if p.Status != nil && *p.Status != cur.Status {
		actor := cur.AssignedTo
		if p.AssignedTo != nil && *p.AssignedTo != "" {
			actor = *p.AssignedTo
		}
		if actor == "" {
			actor = Actor(ctx)
		}
		next.Status = *p.Status
		next.Timeline = append(next.Timeline, event(incidents.EventStatusChange, "Status changed to "+string(*p.Status), actor, now))
	}
	if p.AssignedTo != nil && *p.AssignedTo != "" && *p.AssignedTo != cur.AssignedTo {
		next.AssignedTo = *p.AssignedTo
		next.Timeline = append(next.Timeline, event(incidents.EventAssignment, "Assigned to "+*p.AssignedTo, *p.AssignedTo, now))
	}
	if p.Title != nil {
		next.Title = *p.Title
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Severity != nil {
		next.Severity = *p.Severity
	}
	if p.Service != nil {
		next.Service = *p.Service
	}
	if p.AffectedSystems != nil {
		next.AffectedSystems = slices.Clone(p.AffectedSystems)
	}
	if p.Tags != nil {
		next.Tags = slices.Clone(p.Tags)
	}
	if p.SLADueAt != nil {
		due := p.SLADueAt.UTC()
		next.SLADueAt = &due
	}
	next.UpdatedAt = now
	return next
}

func (s *IncidentService) withSLA(inc incidents.Incident) incidents.Incident {
	inc.SLAStatus = incidents.ComputeSLAWithThreshold(inc.Status, inc.SLADueAt, inc.UpdatedAt, s.now(), s.risk)
	return inc
}

func byIncidentID(id string) func(incidents.Incident) bool {
	return func(inc incidents.Incident) bool { return inc.ID == id }
}

func incidentNotFound(op, id string) error {
	return utils.NewAppError(op+" incident", "Incident not found", fmt.Errorf("%w: %s", utils.ErrNotFound, id))
}

func event(kind incidents.EventType, message, actor string, at time.Time) incidents.TimelineEvent {
	return incidents.TimelineEvent{ID: uuid.NewString(), Type: kind, Message: message, At: at, Actor: actor}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}
