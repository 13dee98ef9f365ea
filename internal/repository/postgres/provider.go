package postgres

import (
	"context"
	"database/sql"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/repository"
)

type providerRepository struct {
	db DBTX
}

func NewProviderRepository(db DBTX) repository.ProviderRepository {
	return &providerRepository{db: db}
}

const providerColumns = `id, organization_id, name, status, verification_status, status_reason,
	average_rating, total_ratings, verified_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (*domain.Provider, error) {
	p := &domain.Provider{}
	var verifiedAt sql.NullTime
	err := row.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Status, &p.VerificationStatus, &p.StatusReason,
		&p.AverageRating, &p.TotalRatings, &verifiedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.VerifiedAt = nullTime(verifiedAt)
	return p, nil
}

func (r *providerRepository) Create(ctx context.Context, p *domain.Provider) error {
	query := `INSERT INTO providers (` + providerColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.OrganizationID, p.Name, p.Status, p.VerificationStatus, p.StatusReason,
		p.AverageRating, p.TotalRatings, p.VerifiedAt, p.CreatedAt, p.UpdatedAt)
	return mapError(err)
}

func (r *providerRepository) GetByID(ctx context.Context, id string) (*domain.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = $1`
	p, err := scanProvider(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *providerRepository) ListByOrganization(ctx context.Context, orgID string) ([]domain.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE organization_id = $1 ORDER BY created_at, id`
	return r.list(ctx, query, orgID)
}

func (r *providerRepository) List(ctx context.Context) ([]domain.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers ORDER BY created_at, id`
	return r.list(ctx, query)
}

func (r *providerRepository) list(ctx context.Context, query string, args ...any) ([]domain.Provider, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var providers []domain.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		providers = append(providers, *p)
	}
	return providers, rows.Err()
}

func (r *providerRepository) UpdateStatus(ctx context.Context, p *domain.Provider) error {
	query := `UPDATE providers SET status = $1, verification_status = $2, status_reason = $3, verified_at = $4, updated_at = $5
	          WHERE id = $6`
	logger.DatabaseCall("UpdateProviderStatus", query, "provider_id", p.ID, "status", p.Status)
	res, err := r.db.ExecContext(ctx, query, p.Status, p.VerificationStatus, p.StatusReason, p.VerifiedAt, p.UpdatedAt, p.ID)
	if err != nil {
		logger.DatabaseResult("UpdateProviderStatus", 0, err)
		return mapError(err)
	}
	return requireOneRow(res, "UpdateProviderStatus")
}
