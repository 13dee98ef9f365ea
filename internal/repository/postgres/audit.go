package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/repository"
)

// auditLogRepository only inserts and selects; the table trigger rejects UPDATE and DELETE.
type auditLogRepository struct {
	db DBTX
}

func NewAuditLogRepository(db DBTX) repository.AuditLogRepository {
	return &auditLogRepository{db: db}
}

func rawArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func (r *auditLogRepository) Append(ctx context.Context, e domain.AuditLogEntry) error {
	query := `INSERT INTO audit_log_entries
	          (id, organization_id, actor_id, action, resource_type, resource_id, previous_values, new_values, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	logger.DatabaseCall("AppendAuditLog", query, "action", e.Action(), "resource_id", e.ResourceID())
	_, err := r.db.ExecContext(ctx, query, e.ID(), e.OrganizationID(), e.ActorID(), e.Action(), e.ResourceType(), e.ResourceID(),
		rawArg(e.PreviousValues()), rawArg(e.NewValues()), e.CreatedAt())
	logger.DatabaseResult("AppendAuditLog", 1, err)
	return mapError(err)
}

func (r *auditLogRepository) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, error) {
	filter = filter.Normalize()

	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.OrganizationID != "" {
		add("organization_id = $%d", filter.OrganizationID)
	}
	if filter.ResourceID != "" {
		add("resource_id = $%d", filter.ResourceID)
	}
	if filter.ResourceType != "" {
		add("resource_type = $%d", filter.ResourceType)
	}
	if filter.ActionPrefix != "" {
		add("action LIKE $%d", escapeLike(filter.ActionPrefix)+"%")
	}
	if filter.Since != nil {
		add("created_at >= $%d", *filter.Since)
	}
	if filter.Until != nil {
		add("created_at < $%d", *filter.Until)
	}

	query := `SELECT id, organization_id, actor_id, action, resource_type, resource_id, previous_values, new_values, created_at
	          FROM audit_log_entries`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var entries []domain.AuditLogEntry
	for rows.Next() {
		var id, orgID, actorID, action, resourceType, resourceID string
		var prev, next []byte
		var createdAt time.Time
		if err := rows.Scan(&id, &orgID, &actorID, &action, &resourceType, &resourceID, &prev, &next, &createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, domain.NewAuditLogEntry(id, orgID, actorID, action, resourceType, resourceID,
			rawOrNil(prev), rawOrNil(next), createdAt))
	}
	return entries, rows.Err()
}

func rawOrNil(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
