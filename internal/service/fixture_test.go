package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/repository/memory"
	"medequip-marketplace/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []domain.Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, note domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note)
	return nil
}

func (n *recordingNotifier) topics() []domain.NotificationTopic {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.NotificationTopic, 0, len(n.notes))
	for _, note := range n.notes {
		out = append(out, note.Topic)
	}
	return out
}

// fixture seeds one hospital, two provider organizations with a verified
// provider each, and platform staff.
type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memory.Store
	clock    *testClock
	notifier *recordingNotifier
	audit    *service.AuditTrail

	requests    service.ServiceRequestService
	quotes      service.QuoteService
	disputes    service.DisputeService
	memberships service.MembershipService
	providers   service.ProviderAdminService
	analytics   service.AnalyticsService
	auditLog    service.AuditService

	hospitalOwner  domain.Identity
	hospitalAdmin  domain.Identity
	hospitalMember domain.Identity
	otherHospital  domain.Identity
	provider1User  domain.Identity
	provider2User  domain.Identity
	platformAdmin  domain.Identity
	support        domain.Identity
	stranger       domain.Identity
}

const (
	hospitalOrgID      = "org-hospital"
	otherHospitalOrgID = "org-hospital-2"
	providerOrg1ID     = "org-provider-1"
	providerOrg2ID     = "org-provider-2"
	provider1ID        = "prov-1"
	provider2ID        = "prov-2"
)

var baseTime = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		store:    memory.NewStore(),
		clock:    &testClock{now: baseTime},
		notifier: &recordingNotifier{},
	}
	opts := []service.Option{service.WithClock(f.clock.Now)}
	f.audit = service.NewAuditTrail(opts...)
	f.requests = service.NewServiceRequestService(f.store, f.audit, f.notifier, opts...)
	f.quotes = service.NewQuoteService(f.store, f.audit, f.notifier, opts...)
	f.disputes = service.NewDisputeService(f.store, f.audit, f.notifier, opts...)
	f.memberships = service.NewMembershipService(f.store, f.audit, opts...)
	f.providers = service.NewProviderAdminService(f.store, f.audit, opts...)
	f.analytics = service.NewAnalyticsService(f.store, service.DefaultAnalyticsSettings(), opts...)
	f.auditLog = service.NewAuditService(f.store)

	f.org(hospitalOrgID, "Bệnh viện Chợ Rẫy", domain.OrganizationTypeHospital)
	f.org(otherHospitalOrgID, "Bệnh viện Bạch Mai", domain.OrganizationTypeHospital)
	f.org(providerOrg1ID, "MedTech Services", domain.OrganizationTypeProvider)
	f.org(providerOrg2ID, "BioCare Engineering", domain.OrganizationTypeProvider)

	f.hospitalOwner = f.member("u-h-owner", hospitalOrgID, domain.MemberRoleOwner)
	f.hospitalAdmin = f.member("u-h-admin", hospitalOrgID, domain.MemberRoleAdmin)
	f.hospitalMember = f.member("u-h-member", hospitalOrgID, domain.MemberRoleMember)
	f.otherHospital = f.member("u-h2-owner", otherHospitalOrgID, domain.MemberRoleOwner)
	f.provider1User = f.member("u-p1", providerOrg1ID, domain.MemberRoleOwner)
	f.provider2User = f.member("u-p2", providerOrg2ID, domain.MemberRoleOwner)
	f.platformAdmin = f.user("u-admin", domain.PlatformRoleAdmin)
	f.support = f.user("u-support", domain.PlatformRoleSupport)
	f.stranger = f.user("u-stranger", domain.PlatformRoleNone)

	f.provider(provider1ID, providerOrg1ID, "MedTech Field Team", domain.ProviderStatusActive, domain.VerificationStatusVerified)
	f.provider(provider2ID, providerOrg2ID, "BioCare Field Team", domain.ProviderStatusActive, domain.VerificationStatusVerified)
	return f
}

func (f *fixture) org(id, name string, typ domain.OrganizationType) {
	require.NoError(f.t, f.store.Organizations().Create(f.ctx, &domain.Organization{
		ID: id, Name: name, Type: typ, ContactEmail: id + "@example.vn", CreatedAt: baseTime, UpdatedAt: baseTime,
	}))
}

func (f *fixture) user(id string, role domain.PlatformRole) domain.Identity {
	email := id + "@example.vn"
	require.NoError(f.t, f.store.Users().Create(f.ctx, &domain.User{
		ID: id, Email: email, Name: id, PlatformRole: role, CreatedAt: baseTime, UpdatedAt: baseTime,
	}))
	return domain.Identity{UserID: id, Email: email, PlatformRole: role}
}

func (f *fixture) member(userID, orgID string, role domain.MemberRole) domain.Identity {
	id := f.user(userID, domain.PlatformRoleNone)
	f.join(userID, orgID, role)
	return id
}

func (f *fixture) join(userID, orgID string, role domain.MemberRole) {
	require.NoError(f.t, f.store.Memberships().Create(f.ctx, &domain.Membership{
		OrganizationID: orgID, UserID: userID, Role: role, JoinedAt: baseTime, UpdatedAt: baseTime,
	}))
}

func (f *fixture) provider(id, orgID, name string, status domain.ProviderStatus, verification domain.VerificationStatus) {
	require.NoError(f.t, f.store.Providers().Create(f.ctx, &domain.Provider{
		ID: id, OrganizationID: orgID, Name: name, Status: status, VerificationStatus: verification,
		CreatedAt: baseTime, UpdatedAt: baseTime,
	}))
}

func (f *fixture) createRequest(equipmentID string) *domain.ServiceRequestView {
	f.t.Helper()
	sr, err := f.requests.Create(f.ctx, f.hospitalMember, service.CreateServiceRequestInput{
		OrganizationID: hospitalOrgID,
		EquipmentID:    equipmentID,
		Type:           domain.ServiceTypeRepair,
		Priority:       domain.PriorityHigh,
		Description:    "Máy siêu âm không khởi động được",
	})
	require.NoError(f.t, err)
	return sr
}

func (f *fixture) submit(caller domain.Identity, srID, providerID string, amount int64) *domain.Quote {
	f.t.Helper()
	q, err := f.quotes.Submit(f.ctx, caller, service.SubmitQuoteInput{
		ServiceRequestID: srID,
		ProviderID:       providerID,
		Amount:           amount,
		Currency:         "VND",
	})
	require.NoError(f.t, err)
	return q
}

// acceptedRequest returns a request accepted with provider 1's quote.
func (f *fixture) acceptedRequest(equipmentID string, amount int64) (*domain.ServiceRequestView, *domain.Quote) {
	f.t.Helper()
	sr := f.createRequest(equipmentID)
	q := f.submit(f.provider1User, sr.ID, provider1ID, amount)
	res, err := f.quotes.Accept(f.ctx, f.hospitalOwner, q.ID)
	require.NoError(f.t, err)
	return &res.ServiceRequest, &res.Quote
}

// completedRequest drives a request through in_progress to completed.
func (f *fixture) completedRequest(equipmentID string, amount int64) (*domain.ServiceRequestView, *domain.Quote) {
	f.t.Helper()
	sr, q := f.acceptedRequest(equipmentID, amount)
	_, err := f.requests.Transition(f.ctx, f.provider1User, sr.ID, domain.ServiceRequestStatusInProgress, "")
	require.NoError(f.t, err)
	done, err := f.requests.Transition(f.ctx, f.hospitalMember, sr.ID, domain.ServiceRequestStatusCompleted, "")
	require.NoError(f.t, err)
	return done, q
}

func (f *fixture) auditActions(resourceID string) []string {
	f.t.Helper()
	entries, err := f.store.AuditLogs().List(f.ctx, domain.AuditFilter{ResourceID: resourceID})
	require.NoError(f.t, err)
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action())
	}
	return actions
}

func (f *fixture) auditCount() int {
	f.t.Helper()
	entries, err := f.store.AuditLogs().List(f.ctx, domain.AuditFilter{Limit: domain.MaxAuditLimit})
	require.NoError(f.t, err)
	return len(entries)
}

func assertCode(t *testing.T, err error, code domain.ErrorCode) {
	t.Helper()
	if assert.Error(t, err) {
		assert.Equal(t, code, domain.CodeOf(err), err.Error())
	}
}
