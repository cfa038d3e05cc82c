// Package actorcontext carries the authenticated actor through request contexts.
package actorcontext

import (
	"context"
	"strings"
)

// Actor is the authenticated principal performing a request. BusinessID
// is the business the token was minted for; empty for system actors.
type Actor struct {
	ID            string
	Role          string
	BusinessID    string
	EmailVerified bool
}

type actorKey struct{}
type ipKey struct{}
type userAgentKey struct{}
type requestIDKey struct{}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor from context, if set.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || strings.TrimSpace(actor.ID) == "" {
		return Actor{}, false
	}
	return actor, true
}

// WithIPAddress stores the caller IP in the context.
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipKey{}, ip)
}

// IPAddressFromContext returns the caller IP, if set.
func IPAddressFromContext(ctx context.Context) string {
	value, _ := ctx.Value(ipKey{}).(string)
	return value
}

// WithUserAgent stores the caller user agent in the context.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, userAgentKey{}, ua)
}

// UserAgentFromContext returns the caller user agent, if set.
func UserAgentFromContext(ctx context.Context) string {
	value, _ := ctx.Value(userAgentKey{}).(string)
	return value
}

// WithRequestID stores the request correlation id in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request correlation id, if set.
func RequestIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}
