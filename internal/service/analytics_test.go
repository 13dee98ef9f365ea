package service_test

import (
	"testing"
	"time"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsService_RequiresPlatformAdmin(t *testing.T) {
	f := newFixture(t)
	_, err := f.analytics.Overview(f.ctx, f.support)
	assertCode(t, err, domain.CodeForbidden)
	_, err = f.analytics.Growth(f.ctx, f.hospitalOwner, 6)
	assertCode(t, err, domain.CodeForbidden)
	_, err = f.analytics.PlatformHealth(f.ctx, domain.Identity{})
	assertCode(t, err, domain.CodeUnauthenticated)
}

func TestAnalyticsService_OverviewAndRevenue(t *testing.T) {
	f := newFixture(t)
	f.completedRequest("eq-1", 450000)
	f.acceptedRequest("eq-2", 300000)

	overview, err := f.analytics.Overview(f.ctx, f.platformAdmin)
	require.NoError(t, err)
	assert.Equal(t, 2, overview.TotalHospitals)
	assert.Equal(t, 2, overview.TotalProviders)
	assert.Equal(t, 2, overview.TotalEquipment)
	assert.Equal(t, 2, overview.TotalServiceRequests)
	assert.Equal(t, int64(450000), overview.TotalRevenue)
	assert.Equal(t, map[string]int64{"VND": 450000}, overview.RevenueByCurrency)

	breakdown, err := f.analytics.RevenueBreakdown(f.ctx, f.platformAdmin, 0)
	require.NoError(t, err)
	require.Len(t, breakdown.TopHospitals, 1)
	assert.Equal(t, hospitalOrgID, breakdown.TopHospitals[0].ID)
	assert.Equal(t, int64(450000), breakdown.TopHospitals[0].Revenue)
	assert.Equal(t, 1, breakdown.TopHospitals[0].Jobs)
	require.Len(t, breakdown.TopProviders, 1)
	assert.Equal(t, provider1ID, breakdown.TopProviders[0].ID)
}

func TestAnalyticsService_GrowthAndServiceMetrics(t *testing.T) {
	f := newFixture(t)
	f.completedRequest("eq-1", 1000)
	cancelled := f.createRequest("eq-2")
	_, err := f.requests.Transition(f.ctx, f.hospitalOwner, cancelled.ID, domain.ServiceRequestStatusCancelled, "")
	require.NoError(t, err)
	f.createRequest("eq-3")

	t.Run("Growth Window", func(t *testing.T) {
		points, err := f.analytics.Growth(f.ctx, f.platformAdmin, 0)
		require.NoError(t, err)
		require.Len(t, points, 6)
		assert.Equal(t, "2025-10", points[0].Month)
		last := points[len(points)-1]
		assert.Equal(t, "2026-03", last.Month)
		assert.Equal(t, 2, last.Hospitals)
		assert.Equal(t, 2, last.Providers)
		assert.Equal(t, 0, points[0].Hospitals)

		capped, err := f.analytics.Growth(f.ctx, f.platformAdmin, 100)
		require.NoError(t, err)
		assert.Len(t, capped, 24)
	})

	t.Run("Completion Rate", func(t *testing.T) {
		points, err := f.analytics.ServiceMetrics(f.ctx, f.platformAdmin, 3)
		require.NoError(t, err)
		require.Len(t, points, 3)
		last := points[2]
		assert.Equal(t, 3, last.Requests)
		assert.Equal(t, 1, last.Completed)
		assert.Equal(t, 1, last.Cancelled)
		assert.Equal(t, 0.5, last.CompletionRate)
		assert.Equal(t, 0.0, points[0].CompletionRate)
	})
}

func TestAnalyticsService_TopPerformers(t *testing.T) {
	f := newFixture(t)
	for _, p := range []domain.Provider{
		{ID: "prov-a", OrganizationID: providerOrg1ID, Name: "A", AverageRating: 4.8, TotalRatings: 3},
		{ID: "prov-b", OrganizationID: providerOrg1ID, Name: "B", AverageRating: 4.8, TotalRatings: 10},
		{ID: "prov-c", OrganizationID: providerOrg2ID, Name: "C", AverageRating: 5, TotalRatings: 0},
	} {
		p.Status = domain.ProviderStatusActive
		p.VerificationStatus = domain.VerificationStatusVerified
		p.CreatedAt = baseTime
		require.NoError(t, f.store.Providers().Create(f.ctx, &p))
	}
	f.createRequest("eq-1")
	f.createRequest("eq-2")
	_, err := f.requests.Create(f.ctx, f.otherHospital, service.CreateServiceRequestInput{
		OrganizationID: otherHospitalOrgID, EquipmentID: "eq-9", Type: domain.ServiceTypeCalibration,
		Priority: domain.PriorityLow, Description: "hiệu chuẩn",
	})
	require.NoError(t, err)

	top, err := f.analytics.TopPerformers(f.ctx, f.platformAdmin, 5)
	require.NoError(t, err)
	require.Len(t, top.Hospitals, 2)
	assert.Equal(t, hospitalOrgID, top.Hospitals[0].OrganizationID)
	assert.Equal(t, 2, top.Hospitals[0].RequestCount)

	require.Len(t, top.Providers, 2)
	assert.Equal(t, "prov-b", top.Providers[0].ProviderID)
	assert.Equal(t, "prov-a", top.Providers[1].ProviderID)
}

func TestAnalyticsService_PlatformHealth(t *testing.T) {
	f := newFixture(t)

	empty, err := f.analytics.PlatformHealth(f.ctx, f.platformAdmin)
	require.NoError(t, err)
	assert.Equal(t, 0.0, empty.AvgQuoteResponseDays)
	assert.Equal(t, 0.0, empty.AvgDisputeResolutionDays)

	sr := f.createRequest("eq-health")
	f.clock.Advance(48 * time.Hour)
	q := f.submit(f.provider1User, sr.ID, provider1ID, 1000)
	_, err = f.quotes.Accept(f.ctx, f.hospitalOwner, q.ID)
	require.NoError(t, err)

	d, err := f.disputes.Open(f.ctx, f.hospitalOwner, service.OpenDisputeInput{
		ServiceRequestID: sr.ID, Type: domain.DisputeTypeDelay, Description: "trễ",
	})
	require.NoError(t, err)
	f.clock.Advance(24 * time.Hour)
	_, err = f.disputes.Escalate(f.ctx, f.hospitalOwner, d.ID, "")
	require.NoError(t, err)
	f.clock.Advance(24 * time.Hour)
	_, err = f.disputes.Resolve(f.ctx, f.platformAdmin, service.ResolveDisputeInput{
		DisputeID: d.ID, Resolution: domain.ResolutionDismiss, ReasonVi: "không có căn cứ",
	})
	require.NoError(t, err)
	_, err = f.disputes.Open(f.ctx, f.provider1User, service.OpenDisputeInput{
		ServiceRequestID: sr.ID, Type: domain.DisputeTypeBilling, Description: "thanh toán",
	})
	require.NoError(t, err)

	f.clock.Advance(8 * 24 * time.Hour)
	health, err := f.analytics.PlatformHealth(f.ctx, f.platformAdmin)
	require.NoError(t, err)
	assert.Equal(t, 2.0, health.AvgQuoteResponseDays)
	assert.Equal(t, 2.0, health.AvgDisputeResolutionDays)
	assert.Equal(t, 1, health.OpenDisputes)
	assert.Equal(t, 0, health.EscalatedDisputes)
	assert.Equal(t, 1, health.BottleneckServiceRequests)

	stale, err := f.analytics.ListBottlenecks(f.ctx, f.platformAdmin, 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.True(t, stale[0].IsBottleneck)
	assert.Equal(t, sr.ID, stale[0].ID)
}
