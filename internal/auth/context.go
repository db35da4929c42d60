// internal/auth/context.go
//
// Actor identity carried in context.Context.
//
// Authentication happens upstream in the hosted auth gateway.  By the time a
// request reaches us, the gateway has verified the session and forwarded the
// user id.  Handlers only need to know *who* mutated a record so audit
// fields (`updated_by`) can distinguish editors from the scheduler.
//
// Usage
// -----
//     ctx = auth.WithActor(ctx, "u_123")
//     id, ok := auth.Actor(ctx)   // "u_123", true
//
// Notes
// -----
// • An absent actor is not an error; store code writes NULL, which the
//   audit trail reads as “system”.

package auth

import "context"

// actorKey is unexported to avoid context-key collisions.
type actorKey struct{}

// WithActor returns a new context carrying the given actor id.  An empty id
// returns ctx unchanged.
func WithActor(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, id)
}

// Actor extracts the actor id from ctx.
func Actor(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(actorKey{}).(string)
	return id, ok && id != ""
}

// ActorPtr returns the actor id as a *string suitable for a nullable
// column, or nil when no human actor is present.
func ActorPtr(ctx context.Context) *string {
	if id, ok := Actor(ctx); ok {
		return &id
	}
	return nil
}
