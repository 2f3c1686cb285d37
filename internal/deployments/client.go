package deployments

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/miradorstack/opsboard/internal/pipeline"
	"github.com/miradorstack/opsboard/internal/store"
)

// DataAPI is the deployment backend. Lifecycle actions fail with utils.ErrInvalidState
// when the deployment's status disallows them.
type DataAPI interface {
	List(ctx context.Context, q store.ListQuery[Filters]) (store.Page[Deployment], error)
	Get(ctx context.Context, id string) (Deployment, error)
	Approve(ctx context.Context, id, actor string) (Deployment, error)
	Start(ctx context.Context, id, actor string) (Deployment, error)
	Progress(ctx context.Context, id string, progress, stepIndex int, actor string) (Deployment, error)
	Finish(ctx context.Context, id string, status Status, actor string) (Deployment, error)
}

const basePath = "/api/deployments"

// Client implements DataAPI over the request pipeline.
type Client struct {
	pipeline *pipeline.Pipeline
}

// NewClient builds a Client.
func NewClient(p *pipeline.Pipeline) *Client {
	return &Client{pipeline: p}
}

// List implements DataAPI.
func (c *Client) List(ctx context.Context, q store.ListQuery[Filters]) (store.Page[Deployment], error) {
	var resp ListResponseDTO
	if err := c.pipeline.DoJSON(ctx, http.MethodGet, basePath, EncodeQuery(q), nil, &resp); err != nil {
		return store.Page[Deployment]{}, err
	}
	return store.Page[Deployment]{
		Items:    ToDomainList(resp.Deployments),
		Total:    resp.Total,
		Page:     resp.Page,
		PageSize: resp.PageSize,
	}, nil
}

// Get implements DataAPI.
func (c *Client) Get(ctx context.Context, id string) (Deployment, error) {
	return c.one(ctx, http.MethodGet, itemPath(id), nil)
}

// Approve implements DataAPI.
func (c *Client) Approve(ctx context.Context, id, actor string) (Deployment, error) {
	return c.one(ctx, http.MethodPost, itemPath(id)+"/approve", ActionRequest{Actor: actor})
}

// Start implements DataAPI.
func (c *Client) Start(ctx context.Context, id, actor string) (Deployment, error) {
	return c.one(ctx, http.MethodPost, itemPath(id)+"/start", ActionRequest{Actor: actor})
}

// Progress implements DataAPI.
func (c *Client) Progress(ctx context.Context, id string, progress, stepIndex int, actor string) (Deployment, error) {
	return c.one(ctx, http.MethodPost, itemPath(id)+"/progress",
		ProgressRequest{Progress: progress, StepIndex: stepIndex, Actor: actor})
}

// Finish implements DataAPI.
func (c *Client) Finish(ctx context.Context, id string, status Status, actor string) (Deployment, error) {
	return c.one(ctx, http.MethodPost, itemPath(id)+"/finish", FinishRequest{Status: string(status), Actor: actor})
}

func (c *Client) one(ctx context.Context, method, path string, body any) (Deployment, error) {
	var dto DTO
	if err := c.pipeline.DoJSON(ctx, method, path, nil, body, &dto); err != nil {
		return Deployment{}, err
	}
	if dto.ID == "" {
		return Deployment{}, fmt.Errorf("%s %s: empty deployment in response", method, path)
	}
	return ToDomain(dto), nil
}

func itemPath(id string) string {
	return basePath + "/" + url.PathEscape(id)
}
