package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/opsboard/internal/deployments"
	"github.com/miradorstack/opsboard/internal/storage"
	"github.com/miradorstack/opsboard/internal/store"
	"github.com/miradorstack/opsboard/internal/utils"
)

func deploymentByName(t *testing.T, svc *DeploymentService, name string) deployments.Deployment {
	t.Helper()
	page, err := svc.List(context.Background(), store.ListQuery[deployments.Filters]{
		Page: 1, PageSize: 10, Filters: deployments.Filters{Search: name},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	return page.Items[0]
}

func TestDeploymentServiceLifecycle(t *testing.T) {
	provider := storage.NewMemoryProvider()
	svc := NewDeploymentService(context.Background(), DeploymentConfig{
		Storage: provider,
		Now:     func() time.Time { return fixedNow },
	})
	ctx := WithActor(context.Background(), "admin@test.com")
	pending := deploymentByName(t, svc, "Payments rollout")
	require.Equal(t, deployments.StatusPending, pending.Status)

	_, err := svc.Start(ctx, pending.ID, "")
	require.ErrorIs(t, err, utils.ErrInvalidState)

	approved, err := svc.Approve(ctx, pending.ID, "")
	require.NoError(t, err)
	assert.Equal(t, deployments.StatusApproved, approved.Status)
	last := approved.Audit[len(approved.Audit)-1]
	assert.Equal(t, "admin@test.com", last.Actor)
	assert.Equal(t, deployments.StatusPending, last.From)

	running, err := svc.Start(ctx, pending.ID, "ops")
	require.NoError(t, err)
	assert.Equal(t, deployments.InitialProgress, running.Progress)
	assert.Equal(t, deployments.StepRunning, running.Steps[0].Status)

	progressed, err := svc.Progress(ctx, pending.ID, 55, 1, "ops")
	require.NoError(t, err)
	assert.Equal(t, 55, progressed.Progress)

	done, err := svc.Finish(ctx, pending.ID, deployments.StatusSuccess, "ops")
	require.NoError(t, err)
	assert.Equal(t, 100, done.Progress)

	reloaded := NewDeploymentService(context.Background(), DeploymentConfig{Storage: provider})
	got, err := reloaded.Get(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, deployments.StatusSuccess, got.Status)
}

func TestDeploymentServiceUnknownID(t *testing.T) {
	svc := NewDeploymentService(context.Background(), DeploymentConfig{})
	_, err := svc.Approve(context.Background(), "nope", "ops")
	require.ErrorIs(t, err, utils.ErrNotFound)
	assert.Equal(t, "Deployment not found", utils.Message(err))
}

func TestDeploymentServiceFiltersByStatus(t *testing.T) {
	svc := NewDeploymentService(context.Background(), DeploymentConfig{})
	page, err := svc.List(context.Background(), store.ListQuery[deployments.Filters]{
		Page: 1, PageSize: 10, Filters: deployments.Filters{Status: []deployments.Status{deployments.StatusApproved}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "Auth hotfix", page.Items[0].Name)
}
