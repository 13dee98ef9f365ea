package security

import (
	"context"
	"errors"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/repository"
)

// IdentityResolver turns a bearer token into a domain.Identity in two steps:
// the token's platform_role claim wins, the users table is the fallback.
type IdentityResolver struct {
	tokens  TokenManager
	users   repository.UserRepository
	members repository.MembershipRepository
}

func NewIdentityResolver(tokens TokenManager, users repository.UserRepository, members repository.MembershipRepository) *IdentityResolver {
	return &IdentityResolver{tokens: tokens, users: users, members: members}
}

func (r *IdentityResolver) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := r.tokens.ValidateToken(token)
	if err != nil {
		return domain.Identity{}, domain.ErrUnauthenticated.Wrap(err)
	}
	if claims.Type != TokenTypeAccess {
		return domain.Identity{}, domain.ErrUnauthenticated.Wrap(ErrWrongTokenType)
	}

	id := domain.Identity{UserID: claims.UserID, Email: claims.Email}
	role, ok := claimRole(claims)
	if !ok {
		role, err = r.lookupRole(ctx, &id)
		if err != nil {
			return domain.Identity{}, err
		}
	}
	id.PlatformRole = role

	memberships, err := r.members.ListByUser(ctx, id.UserID)
	if err != nil {
		return domain.Identity{}, err
	}
	id.Memberships = memberships
	return id, nil
}

// claimRole reports the platform role carried by the token, if any.
func claimRole(claims *UserClaims) (domain.PlatformRole, bool) {
	if claims.PlatformRole == "" {
		return domain.PlatformRoleNone, false
	}
	role := domain.PlatformRole(claims.PlatformRole)
	if !role.Valid() {
		logger.Warn("ignoring unknown platform_role claim", "user_id", claims.UserID, "platform_role", claims.PlatformRole)
		return domain.PlatformRoleNone, false
	}
	return role, true
}

// lookupRole reads the platform role from the users table. Unknown users hold no role.
func (r *IdentityResolver) lookupRole(ctx context.Context, id *domain.Identity) (domain.PlatformRole, error) {
	u, err := r.users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.PlatformRoleNone, nil
		}
		return domain.PlatformRoleNone, err
	}
	if id.Email == "" {
		id.Email = u.Email
	}
	return u.PlatformRole, nil
}
