package grpc

import (
	"context"

	"medequip-marketplace/internal/domain"
)

type identityKey struct{}

// WithIdentity attaches the resolved caller. Only the auth interceptor calls it.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext extracts the caller attached by the auth interceptor.
// Handlers pass it on explicitly; services never look at the context.
func IdentityFromContext(ctx context.Context) (domain.Identity, error) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	if !ok || !id.Authenticated() {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return id, nil
}
