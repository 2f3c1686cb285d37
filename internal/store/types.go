// Package store holds the generic filtered, sorted and paginated collection that every
// feature store is built on, plus the status transition graph used to guard mutations.
package store

import (
	"context"
)

// Entity is anything with a stable string identifier.
type Entity interface {
	EntityID() string
}

// Mode decides where filtering happens. A collection never mixes the two.
type Mode int

const (
	// ModeServer delegates filtering, sorting and paging to the Lister; visible items are
	// exactly the loaded page.
	ModeServer Mode = iota
	// ModeClient holds the full dataset and filters, sorts and pages it locally.
	ModeClient
)

func (m Mode) String() string {
	if m == ModeClient {
		return "client"
	}
	return "server"
}

// Direction orders a sort.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort names the field and direction used for ordering.
type Sort struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// Pagination tracks the current window over the dataset.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

// ListQuery is what a Lister receives.
type ListQuery[F any] struct {
	Page     int
	PageSize int
	Filters  F
	Sort     Sort
}

// Page is one window of results. Page and PageSize echo the server's view and may be zero.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Lister fetches a window of entities.
type Lister[T any, F any] interface {
	List(ctx context.Context, q ListQuery[F]) (Page[T], error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc[T any, F any] func(ctx context.Context, q ListQuery[F]) (Page[T], error)

// List implements Lister.
func (f ListerFunc[T, F]) List(ctx context.Context, q ListQuery[F]) (Page[T], error) {
	return f(ctx, q)
}

// State is the observable snapshot of a collection.
type State[T any, F any] struct {
	Items      []T
	Selected   *T
	Loading    bool
	Error      string
	Filters    F
	Sort       Sort
	Pagination Pagination
}
