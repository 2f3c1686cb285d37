package incidents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/miradorstack/opsboard/internal/audit"
	"github.com/miradorstack/opsboard/internal/storage"
	"github.com/miradorstack/opsboard/internal/store"
	"github.com/miradorstack/opsboard/internal/utils"
)

// FiltersKey is where the list filters are persisted.
const FiltersKey = "opsboard:incidents:filters"

// DefaultSort lists the newest incidents first.
var DefaultSort = store.Sort{Field: SortCreatedAt, Direction: store.Desc}

// Store is the incidents view model.
type Store struct {
	*store.Collection[Incident, Filters]

	api      DataAPI
	audit    audit.Sink
	validate *validator.Validate
	logger   *slog.Logger
}

// StoreConfig wires a Store.
type StoreConfig struct {
	API DataAPI
	// Storage persists filters; optional.
	Storage  storage.Provider
	Audit    audit.Sink
	PageSize int
	Logger   *slog.Logger
}

// NewStore builds a server-mode incident store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("incidents store requires an API")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sink := cfg.Audit
	if sink == nil {
		sink = audit.Discard
	}

	var persistence store.Persistence[Filters]
	if cfg.Storage != nil {
		persistence = store.NewKVPersistence[Filters](cfg.Storage, FiltersKey, logger)
	}

	c, err := store.New(store.Config[Incident, Filters]{
		Name:        "incidents",
		Mode:        store.ModeServer,
		Lister:      cfg.API,
		DefaultSort: DefaultSort,
		PageSize:    cfg.PageSize,
		Persistence: persistence,
		LoadError:   "Failed to load incidents",
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return &Store{
		Collection: c,
		api:        cfg.API,
		audit:      sink,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger,
	}, nil
}

// HasActiveFilters reports whether any filter narrows the list.
func (s *Store) HasActiveFilters() bool {
	return s.Snapshot().Filters.Active()
}

// LoadOne fetches a single incident and selects it.
func (s *Store) LoadOne(ctx context.Context, id string) (*Incident, error) {
	return s.FetchOne(ctx, "Incident not found", func(ctx context.Context) (*Incident, error) {
		inc, err := s.api.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return &inc, nil
	})
}

// Create validates p locally, creates the incident and inserts it first.
func (s *Store) Create(ctx context.Context, p CreatePayload) (*Incident, error) {
	if err := s.validate.Struct(p); err != nil {
		const msg = "Invalid incident"
		s.Fail(msg)
		return nil, utils.NewAppError("create incident", msg, fmt.Errorf("%w: %w", utils.ErrValidation, err))
	}
	inc, err := s.Mutate(ctx, "", "Failed to create incident", func(ctx context.Context) (*Incident, error) {
		inc, err := s.api.Create(ctx, p)
		if err != nil {
			return nil, err
		}
		return &inc, nil
	})
	if err == nil {
		s.record("create_incident", inc.ID, nil)
	}
	return inc, err
}

// Update replaces the incident with the server's copy.
func (s *Store) Update(ctx context.Context, id string, p UpdatePayload) (*Incident, error) {
	if err := s.validate.Struct(p); err != nil {
		const msg = "Invalid incident"
		s.Fail(msg)
		return nil, utils.NewAppError("update incident", msg, fmt.Errorf("%w: %w", utils.ErrValidation, err))
	}
	inc, err := s.Mutate(ctx, id, "Failed to update incident", func(ctx context.Context) (*Incident, error) {
		inc, err := s.api.Update(ctx, id, p)
		if err != nil {
			return nil, err
		}
		return &inc, nil
	})
	if err == nil {
		s.record("update_incident", id, nil)
	}
	return inc, err
}

// Delete removes the incident.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.Mutate(ctx, id, "Failed to delete incident", func(ctx context.Context) (*Incident, error) {
		return nil, s.api.Delete(ctx, id)
	})
	if err == nil {
		s.record("delete_incident", id, nil)
	}
	return err
}

// Assign hands the incident to userID.
func (s *Store) Assign(ctx context.Context, id, userID string) (*Incident, error) {
	inc, err := s.Mutate(ctx, id, "Failed to assign incident", func(ctx context.Context) (*Incident, error) {
		inc, err := s.api.Assign(ctx, id, userID)
		if err != nil {
			return nil, err
		}
		return &inc, nil
	})
	if err == nil {
		s.record("assign_incident", id, map[string]any{"assignee": userID})
	}
	return inc, err
}

// ChangeStatus moves the incident to next. A change the transition graph does not allow
// is rejected before any mutation is sent; an incident that is not loaded is fetched first.
func (s *Store) ChangeStatus(ctx context.Context, id string, next Status) (*Incident, error) {
	current, ok := s.current(id)
	if !ok {
		// Not in view; the server copy decides the starting status.
		fetched, err := s.api.Get(ctx, id)
		if err != nil {
			const msg = "Failed to change status"
			s.Fail(msg)
			return nil, utils.NewAppError("change incident status", msg, err)
		}
		current = fetched
	}
	if err := Transitions.Validate(current.Status, next); err != nil {
		s.Fail(store.InvalidTransitionMessage)
		return nil, err
	}
	inc, err := s.Mutate(ctx, id, "Failed to change status", func(ctx context.Context) (*Incident, error) {
		inc, err := s.api.ChangeStatus(ctx, id, next)
		if err != nil {
			return nil, err
		}
		return &inc, nil
	})
	if err == nil {
		s.record("change_incident_status", id, map[string]any{"status": string(next)})
	}
	return inc, err
}

// AddComment appends a comment to the timeline. actor defaults to "user".
func (s *Store) AddComment(ctx context.Context, id, message, actor string) (*Incident, error) {
	if actor == "" {
		actor = "user"
	}
	inc, err := s.Mutate(ctx, id, "Failed to add comment", func(ctx context.Context) (*Incident, error) {
		inc, err := s.api.AddComment(ctx, id, message, actor)
		if err != nil {
			return nil, err
		}
		return &inc, nil
	})
	if err == nil {
		s.record("comment_incident", id, nil)
	}
	return inc, err
}

func (s *Store) current(id string) (Incident, bool) {
	snap := s.Snapshot()
	for _, inc := range snap.Items {
		if inc.ID == id {
			return inc, true
		}
	}
	if snap.Selected != nil && snap.Selected.ID == id {
		return *snap.Selected, true
	}
	return Incident{}, false
}

func (s *Store) record(action, id string, extra map[string]any) {
	meta := map[string]any{"incidentId": id}
	for k, v := range extra {
		meta[k] = v
	}
	s.audit.Record(audit.Input{Action: action, Resource: "incident", Metadata: meta})
	s.logger.Info("incident action", slog.String("action", action), slog.String("id", id))
}
