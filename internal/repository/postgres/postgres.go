package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/repository"

	"github.com/lib/pq"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repositories struct {
	organizations   repository.OrganizationRepository
	users           repository.UserRepository
	memberships     repository.MembershipRepository
	providers       repository.ProviderRepository
	serviceRequests repository.ServiceRequestRepository
	quotes          repository.QuoteRepository
	disputes        repository.DisputeRepository
	auditLogs       repository.AuditLogRepository
	analytics       repository.AnalyticsRepository
}

func newRepositories(db DBTX) *repositories {
	return &repositories{
		organizations:   NewOrganizationRepository(db),
		users:           NewUserRepository(db),
		memberships:     NewMembershipRepository(db),
		providers:       NewProviderRepository(db),
		serviceRequests: NewServiceRequestRepository(db),
		quotes:          NewQuoteRepository(db),
		disputes:        NewDisputeRepository(db),
		auditLogs:       NewAuditLogRepository(db),
		analytics:       NewAnalyticsRepository(db),
	}
}

func (r *repositories) Organizations() repository.OrganizationRepository { return r.organizations }
func (r *repositories) Users() repository.UserRepository                 { return r.users }
func (r *repositories) Memberships() repository.MembershipRepository     { return r.memberships }
func (r *repositories) Providers() repository.ProviderRepository         { return r.providers }
func (r *repositories) ServiceRequests() repository.ServiceRequestRepository {
	return r.serviceRequests
}
func (r *repositories) Quotes() repository.QuoteRepository         { return r.quotes }
func (r *repositories) Disputes() repository.DisputeRepository     { return r.disputes }
func (r *repositories) AuditLogs() repository.AuditLogRepository   { return r.auditLogs }
func (r *repositories) Analytics() repository.AnalyticsRepository  { return r.analytics }

// Store is the PostgreSQL-backed repository.Store.
type Store struct {
	db *sql.DB
	*repositories
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, repositories: newRepositories(db)}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithinTx runs fn in a SERIALIZABLE transaction and commits when fn succeeds.
// Serialization failures and unique violations come back as CONFLICT.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return mapError(err)
	}
	defer tx.Rollback()

	if err := fn(newRepositories(tx)); err != nil {
		return mapError(err)
	}
	if err := tx.Commit(); err != nil {
		logger.Warn("transaction commit failed", "error", err)
		return mapError(err)
	}
	return nil
}

// mapError translates driver errors into domain errors. Domain errors pass through.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound.Wrap(err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return domain.ErrTxConflict.Wrap(err)
		case "23505":
			return domain.ErrConflict.Wrap(err)
		}
	}
	return err
}

// notFound converts sql.ErrNoRows from a single-row scan.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound.Wrap(err)
	}
	return mapError(err)
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
