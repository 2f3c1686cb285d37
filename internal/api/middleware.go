package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/miradorstack/opsboard/internal/auth"
	"github.com/miradorstack/opsboard/internal/mock"
	"github.com/miradorstack/opsboard/internal/utils"
)

const (
	correlationHeader = "X-Correlation-ID"
	userKey           = "opsboard.user"
)

// Authenticator resolves bearer tokens and serves the auth endpoints.
type Authenticator interface {
	auth.API
	Authenticate(ctx context.Context, token string) (auth.User, error)
}

func logRequests(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("correlation_id", c.GetHeader(correlationHeader)),
		)
	}
}

// echoCorrelation returns the caller's correlation id so both sides log the same value.
func echoCorrelation() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader(correlationHeader); id != "" {
			c.Header(correlationHeader, id)
		}
		c.Next()
	}
}

// requireAuth rejects requests without a live bearer token and attaches the user as the
// acting identity.
func requireAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			writeError(c, utils.NewAppError("authenticate", "Authorization required", utils.ErrUnauthorized))
			return
		}
		user, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			writeError(c, err)
			return
		}
		ctx := mock.WithToken(mock.WithActor(c.Request.Context(), user.Email), token)
		c.Request = c.Request.WithContext(ctx)
		c.Set(userKey, user)
		c.Next()
	}
}

// requireRole must run after requireAuth.
func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := c.Get(userKey)
		if u, ok := user.(auth.User); !ok || !u.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Message: "Not authorized", Code: "FORBIDDEN"})
			return
		}
		c.Next()
	}
}
