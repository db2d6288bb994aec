package auth

import (
	"context"
	"strings"
)

// RoleStaff marks identities allowed to use staff endpoints.
const RoleStaff = "staff"

// Identity describes the authenticated caller attached to a request.
type Identity struct {
	Subject string
	Name    string
	Role    string
}

// IsStaff reports whether the identity carries the staff capability.
func (i *Identity) IsStaff() bool {
	return i != nil && strings.EqualFold(i.Role, RoleStaff)
}

type identityContextKey struct{}

// WithIdentity stores the identity on the context.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext retrieves the identity from the context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
