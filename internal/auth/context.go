// ABOUTME: Dashboard identity carried through request handlers
// ABOUTME: Provides WithIdentity/FromContext for propagating the session's backend credentials

package auth

import (
	"context"
	"time"
)

// Identity is the signed-in dashboard user as seen by handlers: the backend
// bearer token plus the tenant it is scoped to.
type Identity struct {
	SessionID string
	Token     string
	TenantID  string
	Email     string
	Role      string
	Locale    string
	ExpiresAt time.Time
}

// IsOwner reports whether the backend granted a company-level admin role.
func (i *Identity) IsOwner() bool {
	switch i.Role {
	case "company_admin", "owner", "admin":
		return true
	}
	return false
}

type identityContextKey struct{}

// WithIdentity returns a new context with the Identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// FromContext retrieves the Identity from the context, returning nil if not present.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}

// MustFromContext retrieves the Identity from the context, panicking if not present.
func MustFromContext(ctx context.Context) *Identity {
	id := FromContext(ctx)
	if id == nil {
		panic("auth: Identity not found in context")
	}
	return id
}
