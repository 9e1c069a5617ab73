// Package backend hosts the pieces every analytics service shares: internal
// credential verification, scope guards, and the HTTP server skeleton.
package backend

import (
	"context"

	"github.com/finfabric/analytics-gateway/internal/token"
)

type ctxKey string

const actorKey ctxKey = "actor"

// WithActor stashes the verified upstream principal on the request context.
func WithActor(ctx context.Context, a *token.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFrom retrieves the verified upstream principal, nil if the request
// has not passed the verifier.
func ActorFrom(ctx context.Context) *token.Actor {
	if a, ok := ctx.Value(actorKey).(*token.Actor); ok {
		return a
	}
	return nil
}
