package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/repository"
	"medequip-marketplace/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*postgres.Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return postgres.NewStore(db), mock
}

func TestStore_WithinTx(t *testing.T) {
	ctx := context.Background()
	entry := domain.NewAuditLogEntry("a-1", "org-1", "user-1", domain.ActionServiceRequestCreated,
		domain.ResourceServiceRequest, "sr-1", nil, []byte(`{"status":"pending"}`), time.Now())

	t.Run("Commit", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO audit_log_entries").
			WithArgs("a-1", "org-1", "user-1", domain.ActionServiceRequestCreated, domain.ResourceServiceRequest, "sr-1",
				nil, `{"status":"pending"}`, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.WithinTx(ctx, func(tx repository.Repositories) error {
			return tx.AuditLogs().Append(ctx, entry)
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackOnDomainError", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := store.WithinTx(ctx, func(tx repository.Repositories) error {
			return domain.ErrLastOwner
		})
		assert.True(t, errors.Is(err, domain.ErrLastOwner))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SerializationFailureIsConflict", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO audit_log_entries").WillReturnError(&pq.Error{Code: "40001"})
		mock.ExpectRollback()

		err := store.WithinTx(ctx, func(tx repository.Repositories) error {
			return tx.AuditLogs().Append(ctx, entry)
		})
		assert.True(t, errors.Is(err, domain.ErrTxConflict))
		assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UniqueViolationIsConflict", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO audit_log_entries").WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		err := store.WithinTx(ctx, func(tx repository.Repositories) error {
			return tx.AuditLogs().Append(ctx, entry)
		})
		assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))
	})
}

func TestServiceRequestRepository_GetByIDForUpdate(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "organization_id", "equipment_id", "requested_by", "assigned_provider_id", "type", "priority",
			"status", "description", "preferred_date", "completed_at", "cancelled_at", "created_at", "updated_at"}).
			AddRow("sr-1", "org-h", "eq-1", "user-1", "prov-1", "repair", "high", "quoted", "MRI coil fault", nil, nil, nil, now, now)
		mock.ExpectQuery("SELECT (.+) FROM service_requests WHERE id = \\$1 FOR UPDATE").
			WithArgs("sr-1").
			WillReturnRows(rows)

		sr, err := store.ServiceRequests().GetByIDForUpdate(ctx, "sr-1")
		require.NoError(t, err)
		assert.Equal(t, domain.ServiceRequestStatusQuoted, sr.Status)
		assert.True(t, sr.IsAssignedTo("prov-1"))
		assert.Nil(t, sr.CompletedAt)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM service_requests WHERE id = \\$1 FOR UPDATE").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := store.ServiceRequests().GetByIDForUpdate(ctx, "missing")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestServiceRequestRepository_ListVisibleToProviders(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT (.+) FROM service_requests WHERE status = \\$1 AND \\(status IN \\('pending', 'quoted'\\) OR assigned_provider_id = ANY\\(\\$2\\)").
		WithArgs("pending", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	list, err := store.ServiceRequests().List(ctx, repository.ServiceRequestFilter{
		Status:             domain.ServiceRequestStatusPending,
		VisibleToProviders: []string{"prov-1"},
	})
	assert.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipRepository_UpdateRole(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE memberships SET role = \\$1").
			WithArgs("admin", now, "org-1", "user-2").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, store.Memberships().UpdateRole(ctx, "org-1", "user-2", domain.MemberRoleAdmin, now))
	})

	t.Run("NoRowIsNotFound", func(t *testing.T) {
		mock.ExpectExec("UPDATE memberships SET role = \\$1").
			WithArgs("admin", now, "org-1", "ghost").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.Memberships().UpdateRole(ctx, "org-1", "ghost", domain.MemberRoleAdmin, now)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestQuoteRepository_CountByStatus(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT status, COUNT\\(\\*\\) FROM quotes WHERE provider_id = ANY\\(\\$1\\) GROUP BY status").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("accepted", 2).
			AddRow("rejected", 1))

	counts, err := store.Quotes().CountByStatus(ctx, []string{"prov-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, counts[domain.QuoteStatusAccepted])
	assert.Equal(t, 1, counts[domain.QuoteStatusRejected])
	assert.Equal(t, 0, counts[domain.QuoteStatusPending])
}

func TestDisputeRepository_GetByID(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "organization_id", "service_request_id", "opened_by", "opened_by_organization_id", "status", "type",
		"description", "resolution_notes", "escalated_at", "resolved_at", "created_at", "updated_at"}).
		AddRow("d-1", "org-h", "sr-1", "user-1", "org-h", "resolved", "quality", "Transducer still faulty",
			[]byte(`{"resolution":"refund","reason_vi":"Hoàn tiền","refund_amount":250000,"resolved_by":"admin-1"}`),
			now, now, now, now)
	mock.ExpectQuery("SELECT (.+) FROM disputes WHERE id = \\$1").
		WithArgs("d-1").
		WillReturnRows(rows)

	d, err := store.Disputes().GetByID(ctx, "d-1")
	require.NoError(t, err)
	require.NotNil(t, d.ResolutionNotes)
	assert.Equal(t, domain.ResolutionRefund, d.ResolutionNotes.Resolution)
	require.NotNil(t, d.ResolutionNotes.RefundAmount)
	assert.Equal(t, int64(250000), *d.ResolutionNotes.RefundAmount)
	assert.NotNil(t, d.ResolvedAt)
}

func TestDisputeRepository_ListByAssignedProviders(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "organization_id", "service_request_id", "opened_by", "opened_by_organization_id", "status", "type",
		"description", "resolution_notes", "escalated_at", "resolved_at", "created_at", "updated_at"}).
		AddRow("d-2", "org-h", "sr-2", "user-2", "org-p1", "open", "billing", "Invoice mismatch",
			nil, nil, nil, now, now)
	mock.ExpectQuery("SELECT (.+) FROM disputes WHERE status = \\$1 AND service_request_id IN \\(SELECT id FROM service_requests WHERE assigned_provider_id = ANY\\(\\$2\\)\\) ORDER BY created_at DESC, id").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	list, err := store.Disputes().List(ctx, repository.DisputeFilter{
		Status:              domain.DisputeStatusOpen,
		AssignedProviderIDs: []string{"prov-1", "prov-2"},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "d-2", list[0].ID)
	assert.Nil(t, list[0].ResolutionNotes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLogRepository_List(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM audit_log_entries WHERE organization_id = \\$1 AND action LIKE \\$2 ORDER BY created_at DESC, id LIMIT \\$3 OFFSET \\$4").
		WithArgs("org-1", "admin.%", 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "actor_id", "action", "resource_type", "resource_id",
			"previous_values", "new_values", "created_at"}).
			AddRow("a-1", "org-1", "admin-1", domain.ActionDisputeArbitrated, domain.ResourceDispute, "d-1",
				[]byte(`{"status":"escalated"}`), []byte(`{"status":"resolved"}`), now))

	entries, err := store.AuditLogs().List(ctx, domain.AuditFilter{OrganizationID: "org-1", ActionPrefix: "admin."})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionDisputeArbitrated, entries[0].Action())
	assert.JSONEq(t, `{"status":"resolved"}`, string(entries[0].NewValues()))
}

func TestAnalyticsRepository_Counts(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM organizations WHERE type = \\$1").
		WithArgs("hospital").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT COUNT\\(DISTINCT equipment_id\\) FROM service_requests").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	hospitals, err := store.Analytics().CountOrganizations(ctx, domain.OrganizationTypeHospital)
	require.NoError(t, err)
	assert.Equal(t, 3, hospitals)

	equipment, err := store.Analytics().CountDistinctEquipment(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, equipment)
}
