package deployments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/miradorstack/opsboard/internal/audit"
	"github.com/miradorstack/opsboard/internal/store"
	"github.com/miradorstack/opsboard/internal/utils"
)

const (
	// ApproverRole may approve deployments.
	ApproverRole = "admin"
	// DefaultTickInterval paces rollout progress updates.
	DefaultTickInterval = 600 * time.Millisecond
	// RolloutTicks is the number of progress updates before a rollout finishes.
	RolloutTicks = 4

	notAuthorized = "Not authorized"
)

// DefaultSort lists the newest deployments first.
var DefaultSort = store.Sort{Field: SortCreatedAt, Direction: store.Desc}

// Authorizer answers role checks for the current user.
type Authorizer interface {
	HasRole(role string) bool
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(role string) bool

// HasRole implements Authorizer.
func (f AuthorizerFunc) HasRole(role string) bool { return f(role) }

// StoreConfig wires a Store.
type StoreConfig struct {
	API DataAPI
	// Authorizer gates approval; a nil Authorizer denies.
	Authorizer   Authorizer
	Audit        audit.Sink
	PageSize     int
	TickInterval time.Duration
	Logger       *slog.Logger
}

// Store is the deployments view model.
type Store struct {
	*store.Collection[Deployment, Filters]

	api      DataAPI
	authz    Authorizer
	audit    audit.Sink
	tick     time.Duration
	validate *validator.Validate
	logger   *slog.Logger
}

// NewStore builds a server-mode deployment store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("deployments store requires an API")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sink := cfg.Audit
	if sink == nil {
		sink = audit.Discard
	}
	authz := cfg.Authorizer
	if authz == nil {
		authz = AuthorizerFunc(func(string) bool { return false })
	}
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = DefaultTickInterval
	}

	c, err := store.New(store.Config[Deployment, Filters]{
		Name:        "deployments",
		Mode:        store.ModeServer,
		Lister:      cfg.API,
		DefaultSort: DefaultSort,
		PageSize:    cfg.PageSize,
		LoadError:   "Failed to load deployments",
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return &Store{
		Collection: c,
		api:        cfg.API,
		authz:      authz,
		audit:      sink,
		tick:       tick,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger,
	}, nil
}

// Running lists loaded deployments in progress.
func (s *Store) Running() []Deployment { return s.withStatus(StatusRunning) }

// Pending lists loaded deployments awaiting approval.
func (s *Store) Pending() []Deployment { return s.withStatus(StatusPending) }

func (s *Store) withStatus(status Status) []Deployment {
	var out []Deployment
	for _, d := range s.Snapshot().Items {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out
}

// Approve approves a pending deployment. Only the approver role may do so.
func (s *Store) Approve(ctx context.Context, id, actor string) (*Deployment, error) {
	if !s.authz.HasRole(ApproverRole) {
		s.Collection.Fail(notAuthorized)
		return nil, utils.NewAppError("approve deployment", notAuthorized, utils.ErrUnauthorized)
	}
	s.logger.Info("approving deployment", slog.String("id", id), slog.String("actor", actor))
	d, err := s.Mutate(ctx, id, "Failed to approve deployment", func(ctx context.Context) (*Deployment, error) {
		return wrap(s.api.Approve(ctx, id, actor))
	})
	if err == nil {
		s.record(actor, "approve_deployment", id, nil)
	}
	return d, err
}

// Start moves an approved deployment to running.
func (s *Store) Start(ctx context.Context, id, actor string) (*Deployment, error) {
	d, err := s.Mutate(ctx, id, "Failed to start deployment", func(ctx context.Context) (*Deployment, error) {
		return wrap(s.api.Start(ctx, id, actor))
	})
	if err == nil {
		s.record(actor, "start_deployment", id, nil)
	}
	return d, err
}

// Rollout starts the deployment, reports progress once per tick and finishes it
// successfully. Cancelling ctx stops the rollout and leaves the deployment running.
func (s *Store) Rollout(ctx context.Context, id, actor string) (*Deployment, error) {
	if _, err := s.Start(ctx, id, actor); err != nil {
		return nil, err
	}

	timer := time.NewTimer(s.tick)
	defer timer.Stop()
	for i := 0; i < RolloutTicks; i++ {
		select {
		case <-ctx.Done():
			s.logger.Warn("rollout interrupted", slog.String("id", id), slog.Int("tick", i))
			return nil, utils.NewAppError("rollout", "Rollout interrupted", ctx.Err())
		case <-timer.C:
		}
		progress := min(100, (i+1)*25+InitialProgress)
		step := min(2, i)
		_, err := s.Mutate(ctx, id, "Failed to update deployment progress", func(ctx context.Context) (*Deployment, error) {
			return wrap(s.api.Progress(ctx, id, progress, step, actor))
		})
		if err != nil {
			return nil, err
		}
		timer.Reset(s.tick)
	}
	return s.finish(ctx, id, StatusSuccess, actor, "Failed to finish deployment")
}

// Fail marks a running deployment as failed.
func (s *Store) Fail(ctx context.Context, id, actor string) (*Deployment, error) {
	return s.finish(ctx, id, StatusFailed, actor, "Failed to mark deployment as failed")
}

func (s *Store) finish(ctx context.Context, id string, status Status, actor, message string) (*Deployment, error) {
	if err := s.validate.Struct(FinishRequest{Status: string(status), Actor: actor}); err != nil {
		s.Collection.Fail(message)
		return nil, utils.NewAppError("finish deployment", message, fmt.Errorf("%w: %w", utils.ErrValidation, err))
	}
	d, err := s.Mutate(ctx, id, message, func(ctx context.Context) (*Deployment, error) {
		return wrap(s.api.Finish(ctx, id, status, actor))
	})
	if err == nil {
		s.record(actor, "finish_deployment", id, map[string]any{"status": string(status)})
	}
	return d, err
}

func (s *Store) record(actor, action, id string, extra map[string]any) {
	meta := map[string]any{"deploymentId": id}
	for k, v := range extra {
		meta[k] = v
	}
	s.audit.Record(audit.Input{User: actor, Action: action, Resource: "deployment", Metadata: meta})
}

func wrap(d Deployment, err error) (*Deployment, error) {
	if err != nil {
		return nil, err
	}
	return &d, nil
}
