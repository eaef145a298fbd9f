package models

import "context"

// Identity is the authenticated caller resolved from a bearer token.
// It is passed by value and never mutated after resolution.
type Identity struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Anonymous reports whether no caller was resolved.
func (i Identity) Anonymous() bool {
	return i.ID == 0
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored in ctx, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && !id.Anonymous()
}
