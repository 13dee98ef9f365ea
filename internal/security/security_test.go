package security

import (
	"context"
	"testing"
	"time"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/repository/memory"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *tokenManager {
	return NewTokenManager("test-secret", "medequip-test", time.Hour, 24*time.Hour).(*tokenManager)
}

func TestTokenManager(t *testing.T) {
	m := newTestManager()

	t.Run("Round Trip", func(t *testing.T) {
		token, err := m.GenerateAccessToken("u-1", "a@b.vn", domain.PlatformRoleAdmin)
		require.NoError(t, err)
		claims, err := m.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "u-1", claims.UserID)
		assert.Equal(t, TokenTypeAccess, claims.Type)
		assert.Equal(t, "platform_admin", claims.PlatformRole)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("Expired", func(t *testing.T) {
		old := newTestManager()
		old.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := old.GenerateAccessToken("u-1", "", domain.PlatformRoleNone)
		require.NoError(t, err)
		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("Wrong Issuer", func(t *testing.T) {
		other := NewTokenManager("test-secret", "someone-else", time.Hour, time.Hour)
		token, err := other.GenerateAccessToken("u-1", "", domain.PlatformRoleNone)
		require.NoError(t, err)
		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		other := NewTokenManager("another-secret", "medequip-test", time.Hour, time.Hour)
		token, err := other.GenerateAccessToken("u-1", "", domain.PlatformRoleNone)
		require.NoError(t, err)
		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Unsigned", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, UserClaims{UserID: "u-1", Type: TokenTypeAccess}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestIdentityResolver(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Users().Create(ctx, &domain.User{ID: "u-admin", Email: "admin@medequip.vn", PlatformRole: domain.PlatformRoleAdmin}))
	require.NoError(t, store.Users().Create(ctx, &domain.User{ID: "u-plain", Email: "plain@medequip.vn"}))
	require.NoError(t, store.Memberships().Create(ctx, &domain.Membership{OrganizationID: "org-1", UserID: "u-plain", Role: domain.MemberRoleAdmin}))

	m := newTestManager()
	r := NewIdentityResolver(m, store.Users(), store.Memberships())

	t.Run("Table Lookup When Claim Absent", func(t *testing.T) {
		token, _ := m.GenerateAccessToken("u-admin", "", domain.PlatformRoleNone)
		id, err := r.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, domain.PlatformRoleAdmin, id.PlatformRole)
		assert.Equal(t, "admin@medequip.vn", id.Email)
	})

	t.Run("Claim Wins", func(t *testing.T) {
		token, _ := m.GenerateAccessToken("u-admin", "admin@medequip.vn", domain.PlatformRoleSupport)
		id, err := r.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, domain.PlatformRoleSupport, id.PlatformRole)
	})

	t.Run("Memberships Loaded", func(t *testing.T) {
		token, _ := m.GenerateAccessToken("u-plain", "plain@medequip.vn", domain.PlatformRoleNone)
		id, err := r.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, domain.PlatformRoleNone, id.PlatformRole)
		require.Len(t, id.Memberships, 1)
		assert.Equal(t, "org-1", id.Memberships[0].OrganizationID)
	})

	t.Run("Unknown User Has No Role", func(t *testing.T) {
		token, _ := m.GenerateAccessToken("u-ghost", "", domain.PlatformRoleNone)
		id, err := r.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "u-ghost", id.UserID)
		assert.False(t, id.IsPlatformStaff())
	})

	t.Run("Refresh Token Rejected", func(t *testing.T) {
		token, _ := m.GenerateRefreshToken("u-admin", "")
		_, err := r.Resolve(ctx, token)
		assert.Equal(t, domain.CodeUnauthenticated, domain.CodeOf(err))
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := r.Resolve(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})
}
