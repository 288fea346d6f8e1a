package auth

import (
	"context"

	"github.com/google/uuid"
)

// Role names carried in JWT claims and on staff records.
const (
	RoleAdmin     = "admin"
	RoleTherapist = "therapist"
	RoleAHA       = "aha"
)

// Identity is the authenticated caller. It is resolved once by the
// middleware and passed explicitly into service methods that scope work to
// the caller (my-tasks, record-outcome), so caller-dependent behavior is
// visible in every signature instead of hiding in a request-scoped global.
type Identity struct {
	UserID uuid.UUID
	Roles  []string
}

func (id Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (id Identity) IsAdmin() bool { return id.HasRole(RoleAdmin) }

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity stores the caller identity on the context. Only middleware
// should call this.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the authenticated caller, zero-valued when
// unauthenticated.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}
