package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/repository"

	"github.com/lib/pq"
)

type disputeRepository struct {
	db DBTX
}

func NewDisputeRepository(db DBTX) repository.DisputeRepository {
	return &disputeRepository{db: db}
}

const disputeColumns = `id, organization_id, service_request_id, opened_by, opened_by_organization_id, status, type,
	description, resolution_notes, escalated_at, resolved_at, created_at, updated_at`

func scanDispute(row rowScanner) (*domain.Dispute, error) {
	d := &domain.Dispute{}
	var notes []byte
	var escalatedAt, resolvedAt sql.NullTime
	err := row.Scan(&d.ID, &d.OrganizationID, &d.ServiceRequestID, &d.OpenedBy, &d.OpenedByOrganizationID, &d.Status, &d.Type,
		&d.Description, &notes, &escalatedAt, &resolvedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(notes) > 0 {
		var note domain.ResolutionNote
		if err := json.Unmarshal(notes, &note); err != nil {
			return nil, fmt.Errorf("decode resolution notes of dispute %s: %w", d.ID, err)
		}
		d.ResolutionNotes = &note
	}
	d.EscalatedAt = nullTime(escalatedAt)
	d.ResolvedAt = nullTime(resolvedAt)
	return d, nil
}

// encodeResolution returns a NULL-able JSONB argument.
func encodeResolution(note *domain.ResolutionNote) (any, error) {
	if note == nil {
		return nil, nil
	}
	b, err := json.Marshal(note)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *disputeRepository) Create(ctx context.Context, d *domain.Dispute) error {
	notes, err := encodeResolution(d.ResolutionNotes)
	if err != nil {
		return err
	}
	query := `INSERT INTO disputes (` + disputeColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	logger.DatabaseCall("CreateDispute", query, "organization_id", d.OrganizationID, "service_request_id", d.ServiceRequestID)
	_, err = r.db.ExecContext(ctx, query, d.ID, d.OrganizationID, d.ServiceRequestID, d.OpenedBy, d.OpenedByOrganizationID,
		d.Status, d.Type, d.Description, notes, d.EscalatedAt, d.ResolvedAt, d.CreatedAt, d.UpdatedAt)
	logger.DatabaseResult("CreateDispute", 1, err)
	return mapError(err)
}

func (r *disputeRepository) GetByID(ctx context.Context, id string) (*domain.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1`
	d, err := scanDispute(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

func (r *disputeRepository) Update(ctx context.Context, d *domain.Dispute) error {
	notes, err := encodeResolution(d.ResolutionNotes)
	if err != nil {
		return err
	}
	query := `UPDATE disputes SET status = $1, resolution_notes = $2, escalated_at = $3, resolved_at = $4, updated_at = $5
	          WHERE id = $6`
	logger.DatabaseCall("UpdateDispute", query, "dispute_id", d.ID, "status", d.Status)
	res, err := r.db.ExecContext(ctx, query, d.Status, notes, d.EscalatedAt, d.ResolvedAt, d.UpdatedAt, d.ID)
	if err != nil {
		logger.DatabaseResult("UpdateDispute", 0, err)
		return mapError(err)
	}
	return requireOneRow(res, "UpdateDispute")
}

func (r *disputeRepository) List(ctx context.Context, filter repository.DisputeFilter) ([]domain.Dispute, error) {
	var conds []string
	var args []any
	if filter.OrganizationID != "" {
		args = append(args, filter.OrganizationID)
		conds = append(conds, fmt.Sprintf("organization_id = $%d", len(args)))
	}
	if filter.ServiceRequestID != "" {
		args = append(args, filter.ServiceRequestID)
		conds = append(conds, fmt.Sprintf("service_request_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(filter.AssignedProviderIDs) > 0 {
		args = append(args, pq.Array(filter.AssignedProviderIDs))
		conds = append(conds, fmt.Sprintf("service_request_id IN (SELECT id FROM service_requests WHERE assigned_provider_id = ANY($%d))", len(args)))
	}

	query := `SELECT ` + disputeColumns + ` FROM disputes`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var disputes []domain.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		disputes = append(disputes, *d)
	}
	return disputes, rows.Err()
}

func (r *disputeRepository) AddMessage(ctx context.Context, m *domain.DisputeMessage) error {
	query := `INSERT INTO dispute_messages (id, dispute_id, author_id, content, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, m.ID, m.DisputeID, m.AuthorID, m.Content, m.CreatedAt)
	return mapError(err)
}

func (r *disputeRepository) ListMessages(ctx context.Context, disputeID string) ([]domain.DisputeMessage, error) {
	query := `SELECT id, dispute_id, author_id, content, created_at FROM dispute_messages
	          WHERE dispute_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, disputeID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var messages []domain.DisputeMessage
	for rows.Next() {
		var m domain.DisputeMessage
		if err := rows.Scan(&m.ID, &m.DisputeID, &m.AuthorID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
