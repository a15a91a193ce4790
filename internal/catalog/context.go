package catalog

import "context"

// SystemActor attributes mutations made outside any authenticated context.
const SystemActor = "system"

type actorContextKey struct{}

// ContextWithActor stores the acting username in context for audit
// attribution.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the acting username, defaulting to the system
// identity.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorContextKey{}).(string)
	if actor == "" {
		return SystemActor
	}
	return actor
}
