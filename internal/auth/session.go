package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/miradorstack/opsboard/internal/audit"
	"github.com/miradorstack/opsboard/internal/correlation"
	"github.com/miradorstack/opsboard/internal/pipeline"
	"github.com/miradorstack/opsboard/internal/storage"
	"github.com/miradorstack/opsboard/internal/tokens"
	"github.com/miradorstack/opsboard/internal/utils"
)

// UserKey is where the signed-in user is persisted next to the tokens.
const UserKey = "opsboard:auth:user"

// State is the observable session.
type State struct {
	User          *User
	Authenticated bool
	Loading       bool
	MFAPending    bool
	Error         string
}

// SessionConfig wires a Session.
type SessionConfig struct {
	API         API
	Tokens      *tokens.Store
	Correlation *correlation.Context
	// Storage persists the user for Restore; optional.
	Storage storage.Provider
	Audit   audit.Sink
	Policy  Policy
	Logger  *slog.Logger
}

// Session tracks who is signed in.
type Session struct {
	cfg      SessionConfig
	validate *validator.Validate
	logger   *slog.Logger

	mu           sync.RWMutex
	state        State
	pendingEmail string
}

// NewSession builds a signed-out session.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.API == nil || cfg.Tokens == nil {
		return nil, errors.New("session requires an API and a token store")
	}
	if cfg.Correlation == nil {
		cfg.Correlation = correlation.New()
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.Discard
	}
	if cfg.Policy == nil {
		cfg.Policy = DefaultPolicy()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:      cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}, nil
}

// Snapshot returns a copy of the state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state
	if out.User != nil {
		u := *out.User
		out.User = &u
	}
	return out
}

// CurrentUser returns the signed-in user's email, or "" when signed out.
func (s *Session) CurrentUser() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return ""
	}
	return s.state.User.Email
}

// Login submits the first factor. On success the session waits for VerifyMFA unless the
// backend issued tokens straight away.
func (s *Session) Login(ctx context.Context, cred Credentials) error {
	if err := s.validate.Struct(cred); err != nil {
		const msg = "Invalid credentials"
		s.update(func(st *State) { st.Error = msg })
		return utils.NewAppError("login", msg, fmt.Errorf("%w: %w", utils.ErrValidation, err))
	}
	s.update(func(st *State) {
		st.Loading = true
		st.Error = ""
	})

	resp, err := s.cfg.API.Login(ctx, cred)
	if err != nil {
		msg := failureMessage(err, "Login failed")
		s.update(func(st *State) {
			st.Loading = false
			st.Error = msg
		})
		s.logger.Warn("login failed", slog.String("email", cred.Email), slog.Any("error", err))
		return utils.NewAppError("login", msg, err)
	}

	if resp.MFARequired {
		s.mu.Lock()
		s.pendingEmail = cred.Email
		s.state.Loading = false
		s.state.MFAPending = true
		s.mu.Unlock()
		return nil
	}
	if resp.User == nil {
		resp.User = &User{Email: cred.Email}
	}
	s.establish(ctx, TokenResponse{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken, User: *resp.User})
	return nil
}

// VerifyMFA completes a pending login with the second factor.
func (s *Session) VerifyMFA(ctx context.Context, code string) error {
	s.mu.Lock()
	email := s.pendingEmail
	if !s.state.MFAPending || email == "" {
		s.mu.Unlock()
		return utils.NewAppError("verify mfa", "No login in progress", utils.ErrInvalidState)
	}
	s.state.Loading = true
	s.state.Error = ""
	s.mu.Unlock()

	resp, err := s.cfg.API.VerifyMFA(ctx, email, code)
	if err != nil {
		msg := failureMessage(err, "Invalid MFA code")
		s.update(func(st *State) {
			st.Loading = false
			st.Error = msg
		})
		return utils.NewAppError("verify mfa", msg, err)
	}
	s.establish(ctx, resp)
	return nil
}

func (s *Session) establish(ctx context.Context, resp TokenResponse) {
	s.cfg.Tokens.Set(ctx, tokens.Pair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
	user := resp.User
	if s.cfg.Storage != nil {
		if err := storage.SetJSON(ctx, s.cfg.Storage, UserKey, user); err != nil {
			s.logger.Warn("persist user failed", slog.Any("error", err))
		}
	}
	s.mu.Lock()
	s.pendingEmail = ""
	s.state = State{User: &user, Authenticated: true}
	s.mu.Unlock()

	s.cfg.Audit.Record(audit.Input{
		User:     user.Email,
		Action:   "login",
		Resource: "auth",
		Metadata: map[string]any{"userId": user.ID},
	})
	s.logger.Info("signed in", slog.String("user", user.Email))
}

// Logout ends the session locally even when the backend call fails.
func (s *Session) Logout(ctx context.Context) {
	user := s.CurrentUser()
	if s.cfg.Tokens.AccessToken() != "" {
		if err := s.cfg.API.Logout(ctx); err != nil {
			s.logger.Warn("logout request failed", slog.Any("error", err))
		}
	}
	s.signOut(ctx, "")
	if user != "" {
		s.cfg.Audit.Record(audit.Input{User: user, Action: "logout", Resource: "auth"})
	}
}

// Expire signs out after the pipeline failed to refresh the tokens.
func (s *Session) Expire(ctx context.Context) {
	user := s.CurrentUser()
	s.signOut(ctx, "Session expired")
	s.logger.Warn("session expired", slog.String("user", user))
	if user != "" {
		s.cfg.Audit.Record(audit.Input{User: user, Action: "session_expired", Resource: "auth"})
	}
}

func (s *Session) signOut(ctx context.Context, message string) {
	s.cfg.Tokens.Clear(ctx)
	s.cfg.Correlation.Clear()
	if s.cfg.Storage != nil {
		if err := s.cfg.Storage.Del(ctx, UserKey); err != nil {
			s.logger.Warn("forget user failed", slog.Any("error", err))
		}
	}
	s.mu.Lock()
	s.pendingEmail = ""
	s.state = State{Error: message}
	s.mu.Unlock()
}

// Restore rehydrates a persisted session. It reports whether the session is signed in.
func (s *Session) Restore(ctx context.Context) bool {
	pair := s.cfg.Tokens.Load(ctx)
	if pair.Empty() || s.cfg.Storage == nil {
		return false
	}
	var user User
	if err := storage.GetJSON(ctx, s.cfg.Storage, UserKey, &user); err != nil {
		if !errors.Is(err, storage.ErrMissing) {
			s.logger.Warn("restore user failed", slog.Any("error", err))
		}
		return false
	}
	s.mu.Lock()
	s.state = State{User: &user, Authenticated: true}
	s.mu.Unlock()
	return true
}

// HasRole reports whether the signed-in user holds role.
func (s *Session) HasRole(role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User != nil && s.state.User.HasRole(role)
}

// HasAnyRole reports whether the signed-in user holds at least one of roles. An empty
// list admits everyone.
func (s *Session) HasAnyRole(roles ...string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if s.HasRole(r) {
			return true
		}
	}
	return false
}

// CanAccess reports whether every feature is enabled for the signed-in user.
func (s *Session) CanAccess(features ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return false
	}
	for _, f := range features {
		if !s.state.User.HasFeature(f) {
			return false
		}
	}
	return true
}

// Can reports whether the signed-in user's roles grant action on resource.
func (s *Session) Can(resource, action string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return false
	}
	return s.cfg.Policy.Allows(s.state.User.Roles, resource, action)
}

func (s *Session) update(change func(st *State)) {
	s.mu.Lock()
	change(&s.state)
	s.mu.Unlock()
}

func failureMessage(err error, fallback string) string {
	if perr, ok := pipeline.AsError(err); ok && perr.Message != "" {
		return perr.Message
	}
	return fallback
}
