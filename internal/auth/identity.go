package auth

import "context"

// Identity is who a request is acting as, taken from a resolved token.
type Identity struct {
	UserID   string
	Username string
}

// contextKey is unexported so no other package can read or overwrite the
// identity with context.WithValue.
type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext returns the identity stored by RequireAuth.
// ok is false on routes that are not behind RequireAuth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok && id.UserID != ""
}
