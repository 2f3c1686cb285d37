package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/miradorstack/opsboard/internal/auth"
	"github.com/miradorstack/opsboard/internal/storage"
	"github.com/miradorstack/opsboard/internal/utils"
)

// MFACode is the second factor every mock account accepts.
const MFACode = "123456"

// Token lifetimes used when AuthConfig leaves them unset.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 24 * time.Hour
	DefaultMFAWindow  = 5 * time.Minute
)

const tokenPrefix = "opsboard:mock:"

var _ auth.API = (*AuthService)(nil)

// Account is a mock login.
type Account struct {
	Password string
	User     auth.User
}

// DefaultAccounts are the two demo logins.
func DefaultAccounts() []Account {
	return []Account{
		{
			Password: "admin123",
			User: auth.User{
				ID:       "user-1",
				Email:    "admin@test.com",
				Name:     "Admin User",
				Roles:    []string{auth.RoleAdmin, auth.RoleUser},
				Features: []string{"dashboard", "incidents", "deployments", "audit", "logs", "settings"},
			},
		},
		{
			Password: "user123",
			User: auth.User{
				ID:       "user-2",
				Email:    "user@test.com",
				Name:     "Regular User",
				Roles:    []string{auth.RoleUser},
				Features: []string{"dashboard", "incidents", "logs"},
			},
		},
	}
}

// AuthConfig configures an AuthService.
type AuthConfig struct {
	// Storage holds issued tokens and pending second factors; required.
	Storage    storage.Provider
	Accounts   []Account
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Logger     *slog.Logger
}

type account struct {
	hash []byte
	user auth.User
}

type grant struct {
	UserID  string `json:"userId"`
	Refresh string `json:"refresh,omitempty"`
	Access  string `json:"access,omitempty"`
}

// AuthService checks credentials and issues opaque bearer tokens with a TTL.
type AuthService struct {
	storage    storage.Provider
	byEmail    map[string]account
	byID       map[string]auth.User
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *slog.Logger
}

// NewAuthService hashes the configured accounts.
func NewAuthService(cfg AuthConfig) (*AuthService, error) {
	if cfg.Storage == nil {
		return nil, errors.New("auth service requires storage")
	}
	if cfg.Accounts == nil {
		cfg.Accounts = DefaultAccounts()
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &AuthService{
		storage:    cfg.Storage,
		byEmail:    make(map[string]account, len(cfg.Accounts)),
		byID:       make(map[string]auth.User, len(cfg.Accounts)),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		logger:     logger,
	}
	for _, a := range cfg.Accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), cfg.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", a.User.Email, err)
		}
		s.byEmail[strings.ToLower(a.User.Email)] = account{hash: hash, user: a.User}
		s.byID[a.User.ID] = a.User
	}
	return s, nil
}

// Login checks the first factor and opens a second-factor window.
func (s *AuthService) Login(ctx context.Context, c auth.Credentials) (auth.LoginResponse, error) {
	acc, ok := s.byEmail[strings.ToLower(c.Email)]
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(c.Password)) != nil {
		return auth.LoginResponse{}, utils.NewAppError("login", "Invalid credentials", utils.ErrUnauthorized)
	}
	if err := s.put(ctx, mfaKey(c.Email), grant{UserID: acc.user.ID}, DefaultMFAWindow); err != nil {
		return auth.LoginResponse{}, err
	}
	return auth.LoginResponse{MFARequired: true}, nil
}

// VerifyMFA completes a pending login and issues a token pair.
func (s *AuthService) VerifyMFA(ctx context.Context, email, code string) (auth.TokenResponse, error) {
	var pending grant
	if err := s.get(ctx, mfaKey(email), &pending); err != nil {
		return auth.TokenResponse{}, utils.NewAppError("verify mfa", "No login in progress", utils.ErrUnauthorized)
	}
	if code != MFACode {
		return auth.TokenResponse{}, utils.NewAppError("verify mfa", "Invalid MFA code", utils.ErrUnauthorized)
	}
	_ = s.storage.Del(ctx, mfaKey(email))
	return s.issue(ctx, pending.UserID)
}

// Refresh rotates a token pair. The presented refresh token is single use.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (auth.TokenResponse, error) {
	var g grant
	if refreshToken == "" || s.get(ctx, refreshKey(refreshToken), &g) != nil {
		return auth.TokenResponse{}, utils.NewAppError("refresh", "Invalid refresh token", utils.ErrUnauthorized)
	}
	_ = s.storage.Del(ctx, refreshKey(refreshToken))
	if g.Access != "" {
		_ = s.storage.Del(ctx, accessKey(g.Access))
	}
	return s.issue(ctx, g.UserID)
}

// Logout revokes the pair the context's bearer token belongs to.
func (s *AuthService) Logout(ctx context.Context) error {
	token := Token(ctx)
	if token == "" {
		return nil
	}
	var g grant
	if err := s.get(ctx, accessKey(token), &g); err == nil && g.Refresh != "" {
		_ = s.storage.Del(ctx, refreshKey(g.Refresh))
	}
	return s.storage.Del(ctx, accessKey(token))
}

// Authenticate resolves a bearer token. Unknown and expired tokens fail with
// utils.ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (auth.User, error) {
	var g grant
	if token == "" || s.get(ctx, accessKey(token), &g) != nil {
		return auth.User{}, utils.NewAppError("authenticate", "Session expired", utils.ErrUnauthorized)
	}
	user, ok := s.byID[g.UserID]
	if !ok {
		return auth.User{}, utils.NewAppError("authenticate", "Unknown user", utils.ErrUnauthorized)
	}
	return user, nil
}

func (s *AuthService) issue(ctx context.Context, userID string) (auth.TokenResponse, error) {
	user, ok := s.byID[userID]
	if !ok {
		return auth.TokenResponse{}, utils.NewAppError("issue tokens", "Unknown user", utils.ErrUnauthorized)
	}
	access, refresh := uuid.NewString(), uuid.NewString()
	if err := s.put(ctx, accessKey(access), grant{UserID: userID, Refresh: refresh}, s.accessTTL); err != nil {
		return auth.TokenResponse{}, err
	}
	if err := s.put(ctx, refreshKey(refresh), grant{UserID: userID, Access: access}, s.refreshTTL); err != nil {
		return auth.TokenResponse{}, err
	}
	s.logger.Debug("issued tokens", slog.String("userId", userID))
	return auth.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.accessTTL / time.Second),
		User:         user,
	}, nil
}

func (s *AuthService) put(ctx context.Context, key string, g grant, ttl time.Duration) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	if err := s.storage.Set(ctx, key, raw, ttl); err != nil {
		return utils.NewAppError("store token", "Authentication unavailable", fmt.Errorf("%w: %v", utils.ErrServer, err))
	}
	return nil
}

func (s *AuthService) get(ctx context.Context, key string, g *grant) error {
	return storage.GetJSON(ctx, s.storage, key, g)
}

func accessKey(token string) string  { return tokenPrefix + "access:" + token }
func refreshKey(token string) string { return tokenPrefix + "refresh:" + token }
func mfaKey(email string) string     { return tokenPrefix + "mfa:" + strings.ToLower(email) }
