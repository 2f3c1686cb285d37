package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/miradorstack/opsboard/internal/metrics"
	"github.com/miradorstack/opsboard/internal/tokens"
)

// DefaultExemptPaths never carry a bearer token and never trigger a refresh.
var DefaultExemptPaths = []string{"/auth/login", "/auth/refresh", "/auth/mfa/verify"}

// Refresher exchanges a refresh token for a new pair.
type Refresher func(ctx context.Context, refreshToken string) (tokens.Pair, error)

// AuthConfig wires the authentication stage.
type AuthConfig struct {
	Tokens  *tokens.Store
	Refresh Refresher
	// OnSessionExpired runs once per failed refresh, after the tokens were cleared.
	OnSessionExpired func(ctx context.Context)
	ExemptPaths      []string
	Logger           *slog.Logger
}

var errNoRefreshToken = errors.New("no refresh token held")

type authStage struct {
	cfg    AuthConfig
	group  singleflight.Group
	logger *slog.Logger
}

// Authenticate attaches the bearer token and recovers from 401 responses with a
// single-flight refresh shared by every request that failed during the same window.
func Authenticate(cfg AuthConfig) Stage {
	if cfg.ExemptPaths == nil {
		cfg.ExemptPaths = DefaultExemptPaths
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &authStage{cfg: cfg, logger: logger}
	return a.wrap
}

func (a *authStage) wrap(next Handler) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		if a.exempt(req.Path) {
			if req.Header.Get("Authorization") == "" {
				return next(ctx, req)
			}
			out := req.Clone()
			out.Header.Del("Authorization")
			return next(ctx, out)
		}

		used := a.cfg.Tokens.AccessToken()
		resp, err := next(ctx, withBearer(req, used))
		if err != nil || resp.Status != http.StatusUnauthorized {
			return resp, err
		}

		// Another request refreshed while this one was in flight.
		if current := a.cfg.Tokens.AccessToken(); current != "" && current != used {
			return next(ctx, withBearer(req, current))
		}

		if a.cfg.Tokens.RefreshToken() == "" || a.cfg.Refresh == nil {
			a.cfg.Tokens.Clear(ctx)
			return resp, nil
		}

		pair, refreshErr := a.refresh(ctx, used)
		if refreshErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return resp, nil
		}
		return next(ctx, withBearer(req, pair.AccessToken))
	}
}

// refresh joins the in-flight refresh or starts one. stale is the access token the
// caller's request was rejected with.
func (a *authStage) refresh(ctx context.Context, stale string) (tokens.Pair, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := a.group.DoChan("refresh", func() (any, error) {
		if current := a.cfg.Tokens.Pair(); !current.Empty() && current.AccessToken != stale {
			return current, nil
		}
		refreshToken := a.cfg.Tokens.RefreshToken()
		if refreshToken == "" {
			return tokens.Pair{}, errNoRefreshToken
		}

		pair, err := a.cfg.Refresh(flightCtx, refreshToken)
		if err == nil && pair.Empty() {
			err = errors.New("refresh returned an empty token")
		}
		if err != nil {
			metrics.ObserveRefresh(metrics.OutcomeError)
			a.logger.Warn("token refresh failed, ending session", slog.Any("error", err))
			a.cfg.Tokens.Clear(flightCtx)
			if a.cfg.OnSessionExpired != nil {
				a.cfg.OnSessionExpired(flightCtx)
			}
			return tokens.Pair{}, err
		}
		metrics.ObserveRefresh(metrics.OutcomeSuccess)
		if pair.RefreshToken == "" {
			pair.RefreshToken = refreshToken
		}
		a.cfg.Tokens.Set(flightCtx, pair)
		return pair, nil
	})

	select {
	case <-ctx.Done():
		return tokens.Pair{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return tokens.Pair{}, res.Err
		}
		return res.Val.(tokens.Pair), nil
	}
}

func (a *authStage) exempt(path string) bool {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	for _, p := range a.cfg.ExemptPaths {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

func withBearer(req *Request, token string) *Request {
	if token == "" {
		return req
	}
	return req.WithHeader("Authorization", "Bearer "+token)
}
