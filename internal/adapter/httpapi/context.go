package httpapi

import (
	"context"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/domain"
)

// ContextKey is a private type for request context keys.
type ContextKey string

// ActorCtxKey holds the authenticated domain.Actor.
const ActorCtxKey = ContextKey("actor")

func withActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, ActorCtxKey, actor)
}

// ActorFromContext returns the actor set by Authenticate.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(ActorCtxKey).(domain.Actor)
	return actor, ok
}
