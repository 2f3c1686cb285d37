// Package api serves the opsboard backend over HTTP with gin: authentication, incidents,
// deployments and the log stream, plus probes on a separate gRPC listener.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/miradorstack/opsboard/internal/auth"
	"github.com/miradorstack/opsboard/internal/deployments"
	"github.com/miradorstack/opsboard/internal/incidents"
	"github.com/miradorstack/opsboard/internal/logs"
)

// DefaultPageSize applies when a list request names none.
const DefaultPageSize = 10

// Feed supplies log batches to stream subscribers.
type Feed interface {
	Subscribe() (<-chan []logs.Entry, func())
}

// RouterConfig wires the backend services into the router.
type RouterConfig struct {
	Auth        Authenticator
	Incidents   incidents.DataAPI
	Deployments deployments.DataAPI
	Feed        Feed
	// Metrics is mounted at /metrics when set.
	Metrics  http.Handler
	PageSize int
	Logger   *slog.Logger
}

type handlers struct {
	cfg      RouterConfig
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewRouter builds the gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	r := gin.New()
	r.Use(gin.Recovery(), echoCorrelation(), logRequests(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	authn := requireAuth(cfg.Auth)

	a := r.Group("/api/auth")
	a.POST("/login", h.login)
	a.POST("/mfa/verify", h.verifyMFA)
	a.POST("/refresh", h.refresh)
	a.POST("/logout", authn, h.logout)

	inc := r.Group("/api/incidents", authn)
	inc.GET("", h.listIncidents)
	inc.POST("", h.createIncident)
	inc.GET("/:id", h.getIncident)
	inc.PATCH("/:id", h.updateIncident)
	inc.DELETE("/:id", h.deleteIncident)
	inc.POST("/:id/status", h.changeIncidentStatus)
	inc.POST("/:id/assign", h.assignIncident)
	inc.POST("/:id/comments", h.commentIncident)

	dep := r.Group("/api/deployments", authn)
	dep.GET("", h.listDeployments)
	dep.GET("/:id", h.getDeployment)
	dep.POST("/:id/approve", requireRole(auth.RoleAdmin), h.approveDeployment)
	dep.POST("/:id/start", h.startDeployment)
	dep.POST("/:id/progress", h.progressDeployment)
	dep.POST("/:id/finish", h.finishDeployment)

	r.GET(logs.StreamPath, authn, h.streamLogs)

	return r
}
