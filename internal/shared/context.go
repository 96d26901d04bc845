package shared

import (
	"context"

	"github.com/google/uuid"
)

// Identity carries the authenticated actor and tenant resolved by the upstream
// gateway. Every core operation is scoped by it; the service performs no
// authentication of its own.
type Identity struct {
	TenantID uuid.UUID
	ActorID  uuid.UUID
}

// Valid reports whether both tenant and actor are set.
func (id Identity) Valid() bool {
	return id.TenantID != uuid.Nil && id.ActorID != uuid.Nil
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityContextKey{}).(Identity)
	return id
}
