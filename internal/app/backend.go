package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/miradorstack/opsboard/internal/api"
	"github.com/miradorstack/opsboard/internal/config"
	"github.com/miradorstack/opsboard/internal/mock"
	"github.com/miradorstack/opsboard/internal/storage"
)

// Backend is the mock server: seeded services behind the HTTP router.
type Backend struct {
	Auth        *mock.AuthService
	Incidents   *mock.IncidentService
	Deployments *mock.DeploymentService
	Feed        *mock.LogFeed
	Router      *gin.Engine
}

// BackendOptions carries the optional collaborators of a Backend.
type BackendOptions struct {
	// Publisher mirrors every feed batch, typically onto NATS.
	Publisher mock.Publisher
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewBackend seeds the mock services from provider and builds the router. The log feed
// is idle until RunFeed is called.
func NewBackend(ctx context.Context, cfg *config.Config, provider storage.Provider, opts BackendOptions) (*Backend, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	authSvc, err := mock.NewAuthService(mock.AuthConfig{
		Storage:    provider,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("mock auth: %w", err)
	}

	b := &Backend{
		Auth: authSvc,
		Incidents: mock.NewIncidentService(ctx, mock.IncidentConfig{
			Storage:       provider,
			RiskThreshold: cfg.Incidents.RiskThreshold,
			Logger:        logger,
		}),
		Deployments: mock.NewDeploymentService(ctx, mock.DeploymentConfig{
			Storage: provider,
			Logger:  logger,
		}),
		Feed: mock.NewLogFeed(mock.LogFeedConfig{
			Interval:  cfg.Logs.FeedInterval,
			BatchSize: cfg.Logs.FeedBatch,
			Publisher: opts.Publisher,
			Logger:    logger,
		}),
	}
	b.Router = api.NewRouter(api.RouterConfig{
		Auth:        b.Auth,
		Incidents:   b.Incidents,
		Deployments: b.Deployments,
		Feed:        b.Feed,
		Metrics:     opts.Metrics,
		PageSize:    cfg.Incidents.PageSize,
		Logger:      logger.With(slog.String("component", "api")),
	})
	return b, nil
}

// RunFeed generates log batches until ctx ends.
func (b *Backend) RunFeed(ctx context.Context) {
	b.Feed.Run(ctx)
}
