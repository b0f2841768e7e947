// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services read them without importing net/http.
// Tests inject a fixed clock with WithTime so time-dependent derivations
// (overdue checks, expiry sweeps) stay deterministic.
package requestcontext

import (
	"context"
	"time"

	"rentledger/pkg/domain"
)

type (
	actorIDKey     struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Actor retrieves the authenticated party from the context. Returns the zero
// PartyID if not set.
func Actor(ctx context.Context) domain.PartyID {
	if actor, ok := ctx.Value(actorIDKey{}).(domain.PartyID); ok {
		return actor
	}
	return domain.PartyID{}
}

// WithActor injects the acting party into the context.
func WithActor(ctx context.Context, actor domain.PartyID) context.Context {
	return context.WithValue(ctx, actorIDKey{}, actor)
}

// RequestID retrieves the request correlation ID, or "" if unset.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request correlation ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Now returns the request time when one was injected, falling back to the wall
// clock. Derived computations (arrears, expiry) must use this rather than
// time.Now so tests can pin "today".
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the request time in the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
