package service_test

import (
	"testing"

	"medequip-marketplace/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderAdminService(t *testing.T) {
	f := newFixture(t)
	f.provider("prov-new", providerOrg2ID, "New Team", domain.ProviderStatusPendingVerification, domain.VerificationStatusInReview)

	t.Run("Support Cannot Approve", func(t *testing.T) {
		_, err := f.providers.ApproveProvider(f.ctx, f.support, "prov-new")
		assertCode(t, err, domain.CodeForbidden)

		list, err := f.providers.ListProviders(f.ctx, f.support)
		require.NoError(t, err)
		assert.Len(t, list, 3)
	})

	t.Run("Approve", func(t *testing.T) {
		p, err := f.providers.ApproveProvider(f.ctx, f.platformAdmin, "prov-new")
		require.NoError(t, err)
		assert.Equal(t, domain.ProviderStatusActive, p.Status)
		assert.Equal(t, domain.VerificationStatusVerified, p.VerificationStatus)
		require.NotNil(t, p.VerifiedAt)
		assert.True(t, p.CanQuote())

		entries, err := f.store.AuditLogs().List(f.ctx, domain.AuditFilter{ResourceID: "prov-new"})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "admin.provider.approved", entries[0].Action())
		assert.Equal(t, providerOrg2ID, entries[0].OrganizationID())
	})

	t.Run("Approve Twice", func(t *testing.T) {
		_, err := f.providers.ApproveProvider(f.ctx, f.platformAdmin, "prov-new")
		assertCode(t, err, domain.CodeInvalidTransition)
	})

	t.Run("Suspend Requires Reason", func(t *testing.T) {
		_, err := f.providers.SuspendProvider(f.ctx, f.platformAdmin, "prov-new", " ")
		assertCode(t, err, domain.CodeValidation)
	})

	t.Run("Suspend And Reinstate", func(t *testing.T) {
		p, err := f.providers.SuspendProvider(f.ctx, f.platformAdmin, "prov-new", "Chứng chỉ hết hạn")
		require.NoError(t, err)
		assert.Equal(t, domain.ProviderStatusSuspended, p.Status)
		assert.False(t, p.CanQuote())

		p, err = f.providers.ReinstateProvider(f.ctx, f.platformAdmin, "prov-new")
		require.NoError(t, err)
		assert.Equal(t, domain.ProviderStatusActive, p.Status)
	})

	t.Run("Unknown Provider", func(t *testing.T) {
		_, err := f.providers.GetProvider(f.ctx, f.support, "missing")
		assert.ErrorIs(t, err, domain.ErrProviderNotFound)
	})
}
