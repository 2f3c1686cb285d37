// Package mock is the in-process backend behind the opsboard-mock server and the CLI's
// local mode: persisted incident and deployment datasets, credential checks with a second
// factor, expiring bearer tokens and a synthetic log feed.
package mock

import "context"

type ctxKey int

const (
	actorKey ctxKey = iota
	tokenKey
)

// SystemActor is used when a request carries no authenticated actor.
const SystemActor = "system"

// WithActor attaches the acting user's identifier to ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// Actor returns the actor attached to ctx or SystemActor.
func Actor(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey).(string); ok && v != "" {
		return v
	}
	return SystemActor
}

// WithToken attaches the bearer token the request was authenticated with.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// Token returns the bearer token attached to ctx.
func Token(ctx context.Context) string {
	v, _ := ctx.Value(tokenKey).(string)
	return v
}
