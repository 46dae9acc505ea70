package shared

import (
	"context"

	"github.com/google/uuid"
)

// Principal describes the authenticated actor attached to a request.
type Principal struct {
	UserID uuid.UUID
	RoleID uuid.UUID
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
