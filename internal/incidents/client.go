package incidents

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/miradorstack/opsboard/internal/pipeline"
	"github.com/miradorstack/opsboard/internal/store"
)

// DataAPI is the incident backend. List fails with utils.ErrNotAvailable on transport
// errors, Get and Update with utils.ErrNotFound, action mutators with utils.ErrInvalidState.
type DataAPI interface {
	List(ctx context.Context, q store.ListQuery[Filters]) (store.Page[Incident], error)
	Get(ctx context.Context, id string) (Incident, error)
	Create(ctx context.Context, p CreatePayload) (Incident, error)
	Update(ctx context.Context, id string, p UpdatePayload) (Incident, error)
	Delete(ctx context.Context, id string) error
	ChangeStatus(ctx context.Context, id string, status Status) (Incident, error)
	Assign(ctx context.Context, id, userID string) (Incident, error)
	AddComment(ctx context.Context, id, message, actor string) (Incident, error)
}

const basePath = "/api/incidents"

// Client implements DataAPI over the request pipeline.
type Client struct {
	pipeline *pipeline.Pipeline
	mapper   Mapper
}

// NewClient builds a Client.
func NewClient(p *pipeline.Pipeline, mapper Mapper) *Client {
	return &Client{pipeline: p, mapper: mapper}
}

// List implements DataAPI.
func (c *Client) List(ctx context.Context, q store.ListQuery[Filters]) (store.Page[Incident], error) {
	var resp ListResponseDTO
	if err := c.pipeline.DoJSON(ctx, http.MethodGet, basePath, EncodeQuery(q), nil, &resp); err != nil {
		return store.Page[Incident]{}, err
	}
	return store.Page[Incident]{
		Items:    c.mapper.ToDomainList(resp.Incidents),
		Total:    resp.Total,
		Page:     resp.Page,
		PageSize: resp.PageSize,
	}, nil
}

// Get implements DataAPI.
func (c *Client) Get(ctx context.Context, id string) (Incident, error) {
	return c.one(ctx, http.MethodGet, itemPath(id), nil)
}

// Create implements DataAPI.
func (c *Client) Create(ctx context.Context, p CreatePayload) (Incident, error) {
	return c.one(ctx, http.MethodPost, basePath, ToCreateDTO(p))
}

// Update implements DataAPI.
func (c *Client) Update(ctx context.Context, id string, p UpdatePayload) (Incident, error) {
	return c.one(ctx, http.MethodPatch, itemPath(id), ToUpdateDTO(p))
}

// Delete implements DataAPI.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.pipeline.DoJSON(ctx, http.MethodDelete, itemPath(id), nil, nil, nil)
}

// ChangeStatus implements DataAPI.
func (c *Client) ChangeStatus(ctx context.Context, id string, status Status) (Incident, error) {
	return c.one(ctx, http.MethodPost, itemPath(id)+"/status", StatusRequest{Status: string(status)})
}

// Assign implements DataAPI.
func (c *Client) Assign(ctx context.Context, id, userID string) (Incident, error) {
	return c.one(ctx, http.MethodPost, itemPath(id)+"/assign", AssignRequest{UserID: userID})
}

// AddComment implements DataAPI.
func (c *Client) AddComment(ctx context.Context, id, message, actor string) (Incident, error) {
	return c.one(ctx, http.MethodPost, itemPath(id)+"/comments", CommentRequest{Message: message, Actor: actor})
}

func (c *Client) one(ctx context.Context, method, path string, body any) (Incident, error) {
	var dto DTO
	if err := c.pipeline.DoJSON(ctx, method, path, nil, body, &dto); err != nil {
		return Incident{}, err
	}
	if dto.ID == "" {
		return Incident{}, fmt.Errorf("%s %s: empty incident in response", method, path)
	}
	return c.mapper.ToDomain(dto), nil
}

func itemPath(id string) string {
	return basePath + "/" + url.PathEscape(id)
}
