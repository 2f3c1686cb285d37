package mock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/miradorstack/opsboard/internal/deployments"
	"github.com/miradorstack/opsboard/internal/storage"
	"github.com/miradorstack/opsboard/internal/store"
	"github.com/miradorstack/opsboard/internal/utils"
)

var _ deployments.DataAPI = (*DeploymentService)(nil)

// DeploymentConfig configures a DeploymentService.
type DeploymentConfig struct {
	Storage storage.Provider
	Now     func() time.Time
	Logger  *slog.Logger
}

// DeploymentService serves deployments from a persisted dataset and applies the rollout
// lifecycle to them.
type DeploymentService struct {
	data *dataset[deployments.Deployment]
	now  func() time.Time
}

// NewDeploymentService loads the dataset, seeding it on first use.
func NewDeploymentService(ctx context.Context, cfg DeploymentConfig) *DeploymentService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &DeploymentService{
		data: loadDataset(ctx, cfg.Storage, DeploymentsKey, cfg.Logger, func() []deployments.Deployment { return SeedDeployments(now()) }),
		now:  now,
	}
}

// List implements deployments.DataAPI.
func (s *DeploymentService) List(_ context.Context, q store.ListQuery[deployments.Filters]) (store.Page[deployments.Deployment], error) {
	return paginate(s.data.snapshot(), q, deployments.Match, deployments.Compare), nil
}

// Get implements deployments.DataAPI.
func (s *DeploymentService) Get(_ context.Context, id string) (deployments.Deployment, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	idx, ok := s.data.find(byDeploymentID(id))
	if !ok {
		return deployments.Deployment{}, deploymentNotFound("get", id)
	}
	return s.data.items[idx], nil
}

// Approve implements deployments.DataAPI.
func (s *DeploymentService) Approve(ctx context.Context, id, actor string) (deployments.Deployment, error) {
	return s.apply(ctx, "approve", id, func(d deployments.Deployment, now time.Time) (deployments.Deployment, error) {
		return deployments.ApplyApprove(d, actorOr(ctx, actor), now)
	})
}

// Start implements deployments.DataAPI.
func (s *DeploymentService) Start(ctx context.Context, id, actor string) (deployments.Deployment, error) {
	return s.apply(ctx, "start", id, func(d deployments.Deployment, now time.Time) (deployments.Deployment, error) {
		return deployments.ApplyStart(d, actorOr(ctx, actor), now)
	})
}

// Progress implements deployments.DataAPI.
func (s *DeploymentService) Progress(ctx context.Context, id string, progress, stepIndex int, actor string) (deployments.Deployment, error) {
	return s.apply(ctx, "progress", id, func(d deployments.Deployment, now time.Time) (deployments.Deployment, error) {
		return deployments.ApplyProgress(d, progress, stepIndex, actorOr(ctx, actor), now)
	})
}

// Finish implements deployments.DataAPI.
func (s *DeploymentService) Finish(ctx context.Context, id string, status deployments.Status, actor string) (deployments.Deployment, error) {
	return s.apply(ctx, "finish", id, func(d deployments.Deployment, now time.Time) (deployments.Deployment, error) {
		return deployments.ApplyFinish(d, status, actorOr(ctx, actor), now)
	})
}

func (s *DeploymentService) apply(ctx context.Context, op, id string, change func(deployments.Deployment, time.Time) (deployments.Deployment, error)) (deployments.Deployment, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	idx, ok := s.data.find(byDeploymentID(id))
	if !ok {
		return deployments.Deployment{}, deploymentNotFound(op, id)
	}
	next, err := change(s.data.items[idx], s.now().UTC())
	if err != nil {
		return deployments.Deployment{}, err
	}
	s.data.items[idx] = next
	s.data.persist(ctx)
	return next, nil
}

func actorOr(ctx context.Context, actor string) string {
	if actor != "" {
		return actor
	}
	return Actor(ctx)
}

func byDeploymentID(id string) func(deployments.Deployment) bool {
	return func(d deployments.Deployment) bool { return d.ID == id }
}

func deploymentNotFound(op, id string) error {
	return utils.NewAppError(op+" deployment", "Deployment not found", fmt.Errorf("%w: %s", utils.ErrNotFound, id))
}
