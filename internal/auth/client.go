package auth

import (
	"context"
	"net/http"

	"github.com/miradorstack/opsboard/internal/pipeline"
	"github.com/miradorstack/opsboard/internal/tokens"
)

// API is the authentication backend.
type API interface {
	Login(ctx context.Context, c Credentials) (LoginResponse, error)
	VerifyMFA(ctx context.Context, email, code string) (TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (TokenResponse, error)
	Logout(ctx context.Context) error
}

// Client implements API over the request pipeline.
type Client struct {
	pipeline *pipeline.Pipeline
}

// NewClient builds a Client.
func NewClient(p *pipeline.Pipeline) *Client {
	return &Client{pipeline: p}
}

// Login implements API.
func (c *Client) Login(ctx context.Context, cred Credentials) (LoginResponse, error) {
	var resp LoginResponse
	err := c.pipeline.DoJSON(ctx, http.MethodPost, "/api/auth/login", nil, cred, &resp)
	return resp, err
}

// VerifyMFA implements API.
func (c *Client) VerifyMFA(ctx context.Context, email, code string) (TokenResponse, error) {
	var resp TokenResponse
	err := c.pipeline.DoJSON(ctx, http.MethodPost, "/api/auth/mfa/verify", nil, MFARequest{Email: email, Code: code}, &resp)
	return resp, err
}

// Refresh implements API.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenResponse, error) {
	var resp TokenResponse
	err := c.pipeline.DoJSON(ctx, http.MethodPost, "/api/auth/refresh", nil, RefreshRequest{RefreshToken: refreshToken}, &resp)
	return resp, err
}

// Logout implements API.
func (c *Client) Logout(ctx context.Context) error {
	return c.pipeline.DoJSON(ctx, http.MethodPost, "/api/auth/logout", nil, struct{}{}, nil)
}

// Refresher adapts api to the pipeline's refresh hook.
func Refresher(api API) pipeline.Refresher {
	return func(ctx context.Context, refreshToken string) (tokens.Pair, error) {
		resp, err := api.Refresh(ctx, refreshToken)
		if err != nil {
			return tokens.Pair{}, err
		}
		return tokens.Pair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, nil
	}
}
