package shared

import (
	"context"

	"github.com/google/uuid"
)

// Actor identifies who is performing an operation. It travels in the request
// context instead of living in any process-wide session.
type Actor struct {
	UserID    uuid.UUID
	Username  string
	IsAdmin   bool
	IP        string
	UserAgent string
}

// SystemActor is used by operator tooling that runs outside an HTTP request
func SystemActor(name string) Actor {
	return Actor{Username: name, IsAdmin: true}
}

// IsSystem reports whether the actor has no backing user row
func (a Actor) IsSystem() bool {
	return a.UserID == uuid.Nil
}

// UserRef returns the actor's user ID, or nil for system actors
func (a Actor) UserRef() *uuid.UUID {
	if a.IsSystem() {
		return nil
	}
	id := a.UserID
	return &id
}

type actorKey struct{}

// WithActor returns a copy of ctx carrying actor
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored in ctx
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// RequireActor returns the actor stored in ctx or ErrUnauthorized
func RequireActor(ctx context.Context) (Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return Actor{}, ErrUnauthorized
	}
	return actor, nil
}
