package service

import (
	"context"
	"encoding/json"
	"fmt"

	"medequip-marketplace/internal/authz"
	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/metrics"
	"medequip-marketplace/internal/repository"
)

// AuditRecord describes one privileged mutation. Previous and New are
// marshalled to JSON; nil means "no value".
type AuditRecord struct {
	OrganizationID string
	ActorID        string
	Action         string
	ResourceType   string
	ResourceID     string
	Previous       any
	New            any
}

// AuditTrail appends entries through the repositories of the caller's
// transaction, so an entry commits or rolls back with its mutation.
type AuditTrail struct {
	opts options
}

func NewAuditTrail(opts ...Option) *AuditTrail {
	return &AuditTrail{opts: newOptions(opts)}
}

// Record appends one entry and returns its id.
func (a *AuditTrail) Record(ctx context.Context, tx repository.Repositories, rec AuditRecord) (string, error) {
	prev, err := marshalAuditValue(rec.Previous)
	if err != nil {
		return "", err
	}
	next, err := marshalAuditValue(rec.New)
	if err != nil {
		return "", err
	}
	id := a.opts.newID()
	entry := domain.NewAuditLogEntry(id, rec.OrganizationID, rec.ActorID, rec.Action, rec.ResourceType, rec.ResourceID,
		prev, next, a.opts.now())
	if err := tx.AuditLogs().Append(ctx, entry); err != nil {
		return "", err
	}
	if batch, ok := ctx.Value(auditBatchKey{}).(*auditBatch); ok {
		batch.actions = append(batch.actions, rec.Action)
	} else {
		metrics.AuditEntry(rec.Action)
	}
	return id, nil
}

type auditBatchKey struct{}

// auditBatch holds the actions recorded in a transaction that has not committed yet.
type auditBatch struct {
	actions []string
}

// withinAuditedTx runs fn in a store transaction and counts the audit entries
// it recorded only once the transaction has committed.
func withinAuditedTx(ctx context.Context, store repository.Store, fn func(ctx context.Context, tx repository.Repositories) error) error {
	batch := &auditBatch{}
	txCtx := context.WithValue(ctx, auditBatchKey{}, batch)
	err := store.WithinTx(txCtx, func(tx repository.Repositories) error {
		batch.actions = batch.actions[:0]
		return fn(txCtx, tx)
	})
	if err != nil {
		return err
	}
	for _, action := range batch.actions {
		metrics.AuditEntry(action)
	}
	return nil
}

func marshalAuditValue(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal audit values: %w", err)
	}
	return b, nil
}

// statusChange is the previous/new payload of a status transition.
type statusChange struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

type auditService struct {
	store repository.Store
}

func NewAuditService(store repository.Store) AuditService {
	return &auditService{store: store}
}

func (s *auditService) ListForOrganization(ctx context.Context, caller domain.Identity, orgID string, filter domain.AuditFilter) ([]domain.AuditLogEntry, error) {
	logger.EnterMethod("auditService.ListForOrganization", "user_id", caller.UserID, "organization_id", orgID)
	if !caller.IsPlatformAdmin() {
		if _, err := authz.RequireAdmin(ctx, s.store.Memberships(), caller, orgID); err != nil {
			logger.ExitMethodWithError("auditService.ListForOrganization", err, "user_id", caller.UserID)
			return nil, err
		}
	}
	filter.OrganizationID = orgID
	entries, err := s.store.AuditLogs().List(ctx, filter)
	if err != nil {
		logger.ExitMethodWithError("auditService.ListForOrganization", err, "organization_id", orgID)
		return nil, err
	}
	logger.ExitMethod("auditService.ListForOrganization", "organization_id", orgID, "count", len(entries))
	return entries, nil
}

// ListForResource is the arbitration-history lookup and is cross-tenant.
func (s *auditService) ListForResource(ctx context.Context, caller domain.Identity, resourceID string, filter domain.AuditFilter) ([]domain.AuditLogEntry, error) {
	if err := authz.RequirePlatformAdmin(caller); err != nil {
		return nil, err
	}
	filter.ResourceID = resourceID
	return s.store.AuditLogs().List(ctx, filter)
}

func (s *auditService) ListAll(ctx context.Context, caller domain.Identity, filter domain.AuditFilter) ([]domain.AuditLogEntry, error) {
	logger.EnterMethod("auditService.ListAll", "user_id", caller.UserID)
	if err := authz.RequirePlatformAdmin(caller); err != nil {
		logger.ExitMethodWithError("auditService.ListAll", err, "user_id", caller.UserID)
		return nil, err
	}
	entries, err := s.store.AuditLogs().List(ctx, filter)
	if err != nil {
		logger.ExitMethodWithError("auditService.ListAll", err)
		return nil, err
	}
	logger.ExitMethod("auditService.ListAll", "count", len(entries))
	return entries, nil
}
