package auth

import "context"

// Identity describes the caller of a request. Authenticated is false when
// no valid bearer token accompanied the request; UserID is set only when
// Authenticated is true.
type Identity struct {
	Authenticated bool
	UserID        string
}

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity stores the caller identity in the context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the caller identity, or an unauthenticated
// zero identity when the middleware never ran.
func IdentityFromContext(ctx context.Context) Identity {
	if identity, ok := ctx.Value(identityKey).(Identity); ok {
		return identity
	}
	return Identity{}
}
