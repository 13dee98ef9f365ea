package service_test

import (
	"testing"
	"time"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestDisputeService_ArbitrationScenario(t *testing.T) {
	f := newFixture(t)
	sr, _ := f.completedRequest("eq-xray", 450000)

	d, err := f.disputes.Open(f.ctx, f.hospitalOwner, service.OpenDisputeInput{
		ServiceRequestID: sr.ID,
		Type:             domain.DisputeTypeQuality,
		Description:      "Máy X-quang vẫn báo lỗi sau khi sửa",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeStatusOpen, d.Status)
	assert.Equal(t, hospitalOrgID, d.OrganizationID)
	assert.Equal(t, hospitalOrgID, d.OpenedByOrganizationID)

	got, err := f.requests.Get(f.ctx, f.hospitalOwner, sr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ServiceRequestStatusDisputed, got.Status)

	queue, err := f.disputes.ListAll(f.ctx, f.platformAdmin, domain.DisputeStatusEscalated)
	require.NoError(t, err)
	assert.Empty(t, queue)

	f.clock.Advance(24 * time.Hour)
	d, err = f.disputes.Escalate(f.ctx, f.provider1User, d.ID, "không thống nhất được")
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeStatusEscalated, d.Status)
	require.NotNil(t, d.EscalatedAt)

	queue, err = f.disputes.ListAll(f.ctx, f.support, domain.DisputeStatusEscalated)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, d.ID, queue[0].ID)

	f.clock.Advance(24 * time.Hour)
	resolved, err := f.disputes.Resolve(f.ctx, f.platformAdmin, service.ResolveDisputeInput{
		DisputeID:    d.ID,
		Resolution:   domain.ResolutionRefund,
		ReasonVi:     "Nhà cung cấp hoàn tiền một phần",
		RefundAmount: int64Ptr(250000),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DisputeStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	require.NotNil(t, resolved.ResolutionNotes)
	assert.Equal(t, int64(250000), *resolved.ResolutionNotes.RefundAmount)
	assert.Equal(t, "VND", resolved.ResolutionNotes.Currency)
	assert.Equal(t, f.platformAdmin.UserID, resolved.ResolutionNotes.ResolvedBy)

	arbitrated, err := f.store.AuditLogs().List(f.ctx, domain.AuditFilter{ResourceID: d.ID, ActionPrefix: domain.ActionDisputeArbitrated})
	require.NoError(t, err)
	assert.Len(t, arbitrated, 1)

	after, err := f.store.ServiceRequests().GetByID(f.ctx, sr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ServiceRequestStatusDisputed, after.Status)
	assert.Contains(t, f.notifier.topics(), domain.TopicDisputeResolved)

	t.Run("Resolve Twice", func(t *testing.T) {
		_, err := f.disputes.Resolve(f.ctx, f.platformAdmin, service.ResolveDisputeInput{
			DisputeID: d.ID, Resolution: domain.ResolutionDismiss, ReasonVi: "lặp lại",
		})
		assert.ErrorIs(t, err, domain.ErrDisputeAlreadyResolved)
	})

	t.Run("Message After Resolution", func(t *testing.T) {
		_, err := f.disputes.AddMessage(f.ctx, f.hospitalOwner, d.ID, "thêm thông tin")
		assert.ErrorIs(t, err, domain.ErrDisputeAlreadyResolved)
	})
}

func TestDisputeService_Open(t *testing.T) {
	f := newFixture(t)

	t.Run("Pending Request Is Not Disputable", func(t *testing.T) {
		sr := f.createRequest("eq-pending")
		_, err := f.disputes.Open(f.ctx, f.hospitalOwner, service.OpenDisputeInput{
			ServiceRequestID: sr.ID, Type: domain.DisputeTypeDelay, Description: "trễ",
		})
		assertCode(t, err, domain.CodeInvalidTransition)
	})

	t.Run("Assigned Provider Opens", func(t *testing.T) {
		sr, _ := f.acceptedRequest("eq-provider-open", 1000)
		d, err := f.disputes.Open(f.ctx, f.provider1User, service.OpenDisputeInput{
			ServiceRequestID: sr.ID, Type: domain.DisputeTypeBilling, Description: "chưa thanh toán",
		})
		require.NoError(t, err)
		assert.Equal(t, hospitalOrgID, d.OrganizationID)
		assert.Equal(t, providerOrg1ID, d.OpenedByOrganizationID)
	})

	t.Run("Outsider", func(t *testing.T) {
		sr, _ := f.acceptedRequest("eq-outsider", 1000)
		_, err := f.disputes.Open(f.ctx, f.otherHospital, service.OpenDisputeInput{
			ServiceRequestID: sr.ID, Type: domain.DisputeTypeOther, Description: "x",
		})
		assert.ErrorIs(t, err, domain.ErrServiceRequestNotFound)
	})

	t.Run("Second Dispute On Disputed Request", func(t *testing.T) {
		sr, _ := f.acceptedRequest("eq-second", 1000)
		_, err := f.disputes.Open(f.ctx, f.hospitalOwner, service.OpenDisputeInput{
			ServiceRequestID: sr.ID, Type: domain.DisputeTypeDelay, Description: "trễ",
		})
		require.NoError(t, err)
		_, err = f.disputes.Open(f.ctx, f.provider1User, service.OpenDisputeInput{
			ServiceRequestID: sr.ID, Type: domain.DisputeTypeBilling, Description: "thanh toán",
		})
		require.NoError(t, err)

		list, err := f.disputes.ListForOrganization(f.ctx, f.hospitalMember, hospitalOrgID, "")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(list), 2)
	})
}

func TestDisputeService_ListForProvider(t *testing.T) {
	f := newFixture(t)
	sr1, _ := f.acceptedRequest("eq-provider-list-1", 1000)
	d1, err := f.disputes.Open(f.ctx, f.hospitalOwner, service.OpenDisputeInput{
		ServiceRequestID: sr1.ID, Type: domain.DisputeTypeQuality, Description: "vẫn lỗi",
	})
	require.NoError(t, err)

	sr2 := f.createRequest("eq-provider-list-2")
	q2 := f.submit(f.provider2User, sr2.ID, provider2ID, 2000)
	_, err = f.quotes.Accept(f.ctx, f.hospitalOwner, q2.ID)
	require.NoError(t, err)
	d2, err := f.disputes.Open(f.ctx, f.hospitalOwner, service.OpenDisputeInput{
		ServiceRequestID: sr2.ID, Type: domain.DisputeTypeDelay, Description: "trễ hẹn",
	})
	require.NoError(t, err)

	t.Run("Assigned Provider Sees Its Disputes", func(t *testing.T) {
		list, err := f.disputes.ListForProvider(f.ctx, f.provider1User, providerOrg1ID, "")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, d1.ID, list[0].ID)
	})

	t.Run("Status Filter", func(t *testing.T) {
		list, err := f.disputes.ListForProvider(f.ctx, f.provider2User, providerOrg2ID, domain.DisputeStatusEscalated)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("Foreign Provider Organization", func(t *testing.T) {
		_, err := f.disputes.ListForProvider(f.ctx, f.provider2User, providerOrg1ID, "")
		assertCode(t, err, domain.CodeForbidden)
	})

	t.Run("Organization Without Providers", func(t *testing.T) {
		list, err := f.disputes.ListForProvider(f.ctx, f.hospitalOwner, hospitalOrgID, "")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("Support Reads Across Tenants", func(t *testing.T) {
		list, err := f.disputes.ListForProvider(f.ctx, f.support, providerOrg2ID, "")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, d2.ID, list[0].ID)
	})
}

func TestDisputeService_ResolveRules(t *testing.T) {
	f := newFixture(t)
	sr, _ := f.completedRequest("eq-rules", 100000)
	d, err := f.disputes.Open(f.ctx, f.hospitalOwner, service.OpenDisputeInput{
		ServiceRequestID: sr.ID, Type: domain.DisputeTypeQuality, Description: "lỗi",
	})
	require.NoError(t, err)

	t.Run("Not Platform Admin", func(t *testing.T) {
		_, err := f.disputes.Resolve(f.ctx, f.support, service.ResolveDisputeInput{
			DisputeID: d.ID, Resolution: domain.ResolutionDismiss, ReasonVi: "không",
		})
		assertCode(t, err, domain.CodeForbidden)
	})

	t.Run("Open Dispute Must Be Escalated", func(t *testing.T) {
		_, err := f.disputes.Resolve(f.ctx, f.platformAdmin, service.ResolveDisputeInput{
			DisputeID: d.ID, Resolution: domain.ResolutionDismiss, ReasonVi: "không",
		})
		assertCode(t, err, domain.CodeInvalidTransition)
	})

	t.Run("Missing Dispute", func(t *testing.T) {
		_, err := f.disputes.Resolve(f.ctx, f.platformAdmin, service.ResolveDisputeInput{
			DisputeID: "missing", Resolution: domain.ResolutionDismiss, ReasonVi: "không",
		})
		assert.ErrorIs(t, err, domain.ErrDisputeNotFound)
	})

	_, err = f.disputes.Escalate(f.ctx, f.hospitalOwner, d.ID, "")
	require.NoError(t, err)

	t.Run("Escalate Twice", func(t *testing.T) {
		_, err := f.disputes.Escalate(f.ctx, f.hospitalOwner, d.ID, "")
		assertCode(t, err, domain.CodeInvalidTransition)
	})

	t.Run("Refund Above Accepted Quote", func(t *testing.T) {
		_, err := f.disputes.Resolve(f.ctx, f.platformAdmin, service.ResolveDisputeInput{
			DisputeID: d.ID, Resolution: domain.ResolutionPartialRefund, ReasonVi: "hoàn", RefundAmount: int64Ptr(100001),
		})
		assertCode(t, err, domain.CodeValidation)
	})

	t.Run("Refund Without Amount", func(t *testing.T) {
		_, err := f.disputes.Resolve(f.ctx, f.platformAdmin, service.ResolveDisputeInput{
			DisputeID: d.ID, Resolution: domain.ResolutionRefund, ReasonVi: "hoàn",
		})
		assertCode(t, err, domain.CodeValidation)
	})

	t.Run("Dismiss With Amount", func(t *testing.T) {
		_, err := f.disputes.Resolve(f.ctx, f.platformAdmin, service.ResolveDisputeInput{
			DisputeID: d.ID, Resolution: domain.ResolutionDismiss, ReasonVi: "bác", RefundAmount: int64Ptr(1),
		})
		assertCode(t, err, domain.CodeValidation)
	})

	t.Run("Blank Vietnamese Reason", func(t *testing.T) {
		_, err := f.disputes.Resolve(f.ctx, f.platformAdmin, service.ResolveDisputeInput{
			DisputeID: d.ID, Resolution: domain.ResolutionDismiss, ReasonVi: "   \t\n",
		})
		assertCode(t, err, domain.CodeValidation)
	})

	t.Run("Failed Resolution Writes Nothing", func(t *testing.T) {
		stored, err := f.store.Disputes().GetByID(f.ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DisputeStatusEscalated, stored.Status)
		assert.NotContains(t, f.auditActions(d.ID), domain.ActionDisputeArbitrated)
	})

	t.Run("Re Assign Category Does Not Reassign", func(t *testing.T) {
		_, err := f.disputes.Resolve(f.ctx, f.platformAdmin, service.ResolveDisputeInput{
			DisputeID: d.ID, Resolution: domain.ResolutionReassign, ReasonVi: "đổi nhà cung cấp",
		})
		require.NoError(t, err)
		stored, err := f.store.ServiceRequests().GetByID(f.ctx, sr.ID)
		require.NoError(t, err)
		assert.Equal(t, provider1ID, *stored.AssignedProviderID)
	})
}

func TestDisputeService_Messages(t *testing.T) {
	f := newFixture(t)
	sr, _ := f.acceptedRequest("eq-messages", 1000)
	d, err := f.disputes.Open(f.ctx, f.hospitalOwner, service.OpenDisputeInput{
		ServiceRequestID: sr.ID, Type: domain.DisputeTypeDelay, Description: "trễ hẹn",
	})
	require.NoError(t, err)

	_, err = f.disputes.AddMessage(f.ctx, f.provider1User, d.ID, "Linh kiện về vào thứ Hai")
	require.NoError(t, err)
	_, err = f.disputes.AddMessage(f.ctx, f.hospitalOwner, d.ID, "Đồng ý")
	require.NoError(t, err)

	t.Run("Empty Content", func(t *testing.T) {
		_, err := f.disputes.AddMessage(f.ctx, f.hospitalOwner, d.ID, "   ")
		assertCode(t, err, domain.CodeValidation)
	})

	t.Run("Anonymous Rejected Before Validation", func(t *testing.T) {
		_, err := f.disputes.AddMessage(f.ctx, domain.Identity{}, d.ID, "")
		assertCode(t, err, domain.CodeUnauthenticated)
	})

	t.Run("Outsider", func(t *testing.T) {
		_, err := f.disputes.AddMessage(f.ctx, f.provider2User, d.ID, "xin chào")
		assert.ErrorIs(t, err, domain.ErrDisputeNotFound)
		_, err = f.disputes.Get(f.ctx, f.otherHospital, d.ID)
		assert.ErrorIs(t, err, domain.ErrDisputeNotFound)
	})

	t.Run("List", func(t *testing.T) {
		msgs, err := f.disputes.ListMessages(f.ctx, f.hospitalMember, d.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, f.provider1User.UserID, msgs[0].AuthorID)
	})
}

func TestDisputeService_ReassignProvider(t *testing.T) {
	f := newFixture(t)
	sr, _ := f.acceptedRequest("eq-reassign", 1000)

	t.Run("Not Platform Admin", func(t *testing.T) {
		_, err := f.disputes.ReassignProvider(f.ctx, f.hospitalOwner, sr.ID, provider2ID, "chậm trễ")
		assertCode(t, err, domain.CodeForbidden)
	})

	t.Run("Success", func(t *testing.T) {
		got, err := f.disputes.ReassignProvider(f.ctx, f.platformAdmin, sr.ID, provider2ID, "chậm trễ")
		require.NoError(t, err)
		assert.Equal(t, provider2ID, *got.AssignedProviderID)
		assert.Equal(t, domain.ServiceRequestStatusAccepted, got.Status)
		assert.Contains(t, f.auditActions(sr.ID), domain.ActionProviderReassigned)
	})

	t.Run("Already Assigned", func(t *testing.T) {
		_, err := f.disputes.ReassignProvider(f.ctx, f.platformAdmin, sr.ID, provider2ID, "lặp lại")
		assertCode(t, err, domain.CodeConflict)
	})

	t.Run("Pending Request", func(t *testing.T) {
		open := f.createRequest("eq-reassign-open")
		_, err := f.disputes.ReassignProvider(f.ctx, f.platformAdmin, open.ID, provider2ID, "x")
		assertCode(t, err, domain.CodeInvalidTransition)
	})

	t.Run("Unknown Provider", func(t *testing.T) {
		_, err := f.disputes.ReassignProvider(f.ctx, f.platformAdmin, sr.ID, "missing", "x")
		assert.ErrorIs(t, err, domain.ErrProviderNotFound)
	})
}
