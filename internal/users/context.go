package users

import "context"

type actorContextKey struct{}

// ContextWithActor stores the authenticated account in context.
func ContextWithActor(ctx context.Context, actor User) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the authenticated account from context.
func ActorFromContext(ctx context.Context) (User, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(User)
	return actor, ok
}
