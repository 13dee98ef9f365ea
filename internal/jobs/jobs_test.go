package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"medequip-marketplace/internal/config"
	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/repository/memory"
	"medequip-marketplace/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jobTime = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

func seedRequest(t *testing.T, store *memory.Store, id string, status domain.ServiceRequestStatus, updatedAt time.Time) {
	t.Helper()
	require.NoError(t, store.ServiceRequests().Create(context.Background(), &domain.ServiceRequest{
		ID: id, OrganizationID: "org-h", EquipmentID: "eq-" + id, RequestedBy: "u-h",
		Type: domain.ServiceTypeRepair, Priority: domain.PriorityMedium, Status: status,
		Description: "seed", CreatedAt: updatedAt, UpdatedAt: updatedAt,
	}))
}

func seedQuote(t *testing.T, store *memory.Store, id, srID string, validUntil time.Time) {
	t.Helper()
	require.NoError(t, store.Providers().Create(context.Background(), &domain.Provider{
		ID: "prov-" + id, OrganizationID: "org-p", Name: "Provider " + id,
		Status: domain.ProviderStatusActive, VerificationStatus: domain.VerificationStatusVerified,
	}))
	require.NoError(t, store.Quotes().Create(context.Background(), &domain.Quote{
		ID: id, ServiceRequestID: srID, ProviderID: "prov-" + id, SubmittedBy: "u-p",
		Status: domain.QuoteStatusPending, Amount: 1_000_000, Currency: "VND",
		ValidUntil: &validUntil, CreatedAt: jobTime.Add(-48 * time.Hour), UpdatedAt: jobTime.Add(-48 * time.Hour),
	}))
}

func newRunner(store *memory.Store) *JobRunner {
	clock := func() time.Time { return jobTime }
	quotes := service.NewQuoteService(store, service.NewAuditTrail(service.WithClock(clock)),
		service.NewLogNotifier(), service.WithClock(clock))
	jr := NewJobRunner(store, &Services{Quotes: quotes}, &config.Config{})
	jr.now = clock
	return jr
}

func TestExpireQuotes(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.Organizations().Create(context.Background(), &domain.Organization{
		ID: "org-h", Name: "Hospital", Type: domain.OrganizationTypeHospital,
	}))
	seedRequest(t, store, "sr-1", domain.ServiceRequestStatusQuoted, jobTime.Add(-time.Hour))
	seedQuote(t, store, "q-old", "sr-1", jobTime.Add(-time.Hour))
	seedQuote(t, store, "q-new", "sr-1", jobTime.Add(time.Hour))

	require.NoError(t, newRunner(store).ExpireQuotes())

	old, err := store.Quotes().GetByID(context.Background(), "q-old")
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusExpired, old.Status)

	fresh, err := store.Quotes().GetByID(context.Background(), "q-new")
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusPending, fresh.Status)
}

func TestReportBottlenecks(t *testing.T) {
	store := memory.NewStore()
	seedRequest(t, store, "stale", domain.ServiceRequestStatusAccepted, jobTime.Add(-8*24*time.Hour))
	seedRequest(t, store, "done", domain.ServiceRequestStatusCompleted, jobTime.Add(-30*24*time.Hour))
	seedRequest(t, store, "fresh", domain.ServiceRequestStatusPending, jobTime.Add(-time.Hour))

	assert.NoError(t, newRunner(store).ReportBottlenecks())
}

func TestRunWithRecovery(t *testing.T) {
	jr := newRunner(memory.NewStore())

	err := jr.runWithRecovery("Panics", func(context.Context) error { panic("boom") })
	assert.ErrorContains(t, err, "boom")

	want := errors.New("failed")
	assert.Equal(t, want, jr.runWithRecovery("Fails", func(context.Context) error { return want }))

	assert.NoError(t, jr.RunAll())
}
