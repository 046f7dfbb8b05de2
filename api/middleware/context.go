package middleware

import (
	"context"

	"github.com/angelmondragon/hatchery-backend/pkg/enums"
)

// Actor is the authenticated caller attached by Auth or SystemKey.
type Actor struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == string(enums.RoleAdmin)
}

type actorKey struct{}

// ActorFromContext returns the zero Actor for anonymous requests.
func ActorFromContext(ctx context.Context) Actor {
	if ctx == nil {
		return Actor{}
	}
	actor, _ := ctx.Value(actorKey{}).(Actor)
	return actor
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

func UserIDFromContext(ctx context.Context) string { return ActorFromContext(ctx).UserID }

func RoleFromContext(ctx context.Context) string { return ActorFromContext(ctx).Role }

// WithUserID replaces the caller's user id, keeping any role already set.
func WithUserID(ctx context.Context, userID string) context.Context {
	actor := ActorFromContext(ctx)
	actor.UserID = userID
	return WithActor(ctx, actor)
}

// WithRole replaces the caller's role, keeping any user id already set.
func WithRole(ctx context.Context, role string) context.Context {
	actor := ActorFromContext(ctx)
	actor.Role = role
	return WithActor(ctx, actor)
}
