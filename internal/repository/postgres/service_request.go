package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/repository"

	"github.com/lib/pq"
)

type serviceRequestRepository struct {
	db DBTX
}

func NewServiceRequestRepository(db DBTX) repository.ServiceRequestRepository {
	return &serviceRequestRepository{db: db}
}

const serviceRequestColumns = `id, organization_id, equipment_id, requested_by, assigned_provider_id, type, priority,
	status, description, preferred_date, completed_at, cancelled_at, created_at, updated_at`

func scanServiceRequest(row rowScanner) (*domain.ServiceRequest, error) {
	sr := &domain.ServiceRequest{}
	var assigned sql.NullString
	var preferred, completed, cancelled sql.NullTime
	err := row.Scan(&sr.ID, &sr.OrganizationID, &sr.EquipmentID, &sr.RequestedBy, &assigned, &sr.Type, &sr.Priority,
		&sr.Status, &sr.Description, &preferred, &completed, &cancelled, &sr.CreatedAt, &sr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sr.AssignedProviderID = nullString(assigned)
	sr.PreferredDate = nullTime(preferred)
	sr.CompletedAt = nullTime(completed)
	sr.CancelledAt = nullTime(cancelled)
	return sr, nil
}

func (r *serviceRequestRepository) Create(ctx context.Context, sr *domain.ServiceRequest) error {
	query := `INSERT INTO service_requests (` + serviceRequestColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	logger.DatabaseCall("CreateServiceRequest", query, "organization_id", sr.OrganizationID)
	_, err := r.db.ExecContext(ctx, query, sr.ID, sr.OrganizationID, sr.EquipmentID, sr.RequestedBy, sr.AssignedProviderID,
		sr.Type, sr.Priority, sr.Status, sr.Description, sr.PreferredDate, sr.CompletedAt, sr.CancelledAt, sr.CreatedAt, sr.UpdatedAt)
	logger.DatabaseResult("CreateServiceRequest", 1, err)
	return mapError(err)
}

func (r *serviceRequestRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	query := `SELECT ` + serviceRequestColumns + ` FROM service_requests WHERE id = $1`
	sr, err := scanServiceRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return sr, nil
}

func (r *serviceRequestRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	query := `SELECT ` + serviceRequestColumns + ` FROM service_requests WHERE id = $1 FOR UPDATE`
	sr, err := scanServiceRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return sr, nil
}

func (r *serviceRequestRepository) Update(ctx context.Context, sr *domain.ServiceRequest) error {
	query := `UPDATE service_requests
	          SET status = $1, assigned_provider_id = $2, completed_at = $3, cancelled_at = $4, updated_at = $5
	          WHERE id = $6`
	logger.DatabaseCall("UpdateServiceRequest", query, "service_request_id", sr.ID, "status", sr.Status)
	res, err := r.db.ExecContext(ctx, query, sr.Status, sr.AssignedProviderID, sr.CompletedAt, sr.CancelledAt, sr.UpdatedAt, sr.ID)
	if err != nil {
		logger.DatabaseResult("UpdateServiceRequest", 0, err)
		return mapError(err)
	}
	return requireOneRow(res, "UpdateServiceRequest")
}

func (r *serviceRequestRepository) List(ctx context.Context, filter repository.ServiceRequestFilter) ([]domain.ServiceRequest, error) {
	var conds []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.OrganizationID != "" {
		conds = append(conds, "organization_id = "+next(filter.OrganizationID))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+next(filter.Status))
	}
	if len(filter.VisibleToProviders) > 0 {
		p := next(pq.Array(filter.VisibleToProviders))
		conds = append(conds, `(status IN ('pending', 'quoted')
			OR assigned_provider_id = ANY(`+p+`)
			OR id IN (SELECT service_request_id FROM quotes WHERE provider_id = ANY(`+p+`)))`)
	}

	query := `SELECT ` + serviceRequestColumns + ` FROM service_requests`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`
	return r.list(ctx, query, args...)
}

func (r *serviceRequestRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]domain.ServiceRequest, error) {
	query := `SELECT ` + serviceRequestColumns + ` FROM service_requests
	          WHERE status NOT IN ('completed', 'cancelled') AND updated_at < $1
	          ORDER BY updated_at, id LIMIT $2`
	// LIMIT NULL means no limit.
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	return r.list(ctx, query, cutoff, limitArg)
}

func (r *serviceRequestRepository) list(ctx context.Context, query string, args ...any) ([]domain.ServiceRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var requests []domain.ServiceRequest
	for rows.Next() {
		sr, err := scanServiceRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *sr)
	}
	return requests, rows.Err()
}

func (r *serviceRequestRepository) RecordDecline(ctx context.Context, d *domain.ServiceRequestDecline) error {
	query := `INSERT INTO service_request_declines (id, service_request_id, provider_id, declined_by, reason, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, d.ID, d.ServiceRequestID, d.ProviderID, d.DeclinedBy, d.Reason, d.CreatedAt)
	return mapError(err)
}

func (r *serviceRequestRepository) ListDeclines(ctx context.Context, serviceRequestID string) ([]domain.ServiceRequestDecline, error) {
	query := `SELECT id, service_request_id, provider_id, declined_by, reason, created_at
	          FROM service_request_declines WHERE service_request_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, serviceRequestID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var declines []domain.ServiceRequestDecline
	for rows.Next() {
		var d domain.ServiceRequestDecline
		if err := rows.Scan(&d.ID, &d.ServiceRequestID, &d.ProviderID, &d.DeclinedBy, &d.Reason, &d.CreatedAt); err != nil {
			return nil, err
		}
		declines = append(declines, d)
	}
	return declines, rows.Err()
}
