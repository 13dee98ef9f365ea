package postgres

import (
	"context"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/repository"
)

type organizationRepository struct {
	db DBTX
}

func NewOrganizationRepository(db DBTX) repository.OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(ctx context.Context, o *domain.Organization) error {
	query := `INSERT INTO organizations (id, name, type, contact_email, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, o.ID, o.Name, o.Type, o.ContactEmail, o.CreatedAt, o.UpdatedAt)
	return mapError(err)
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	o := &domain.Organization{}
	query := `SELECT id, name, type, contact_email, created_at, updated_at FROM organizations WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&o.ID, &o.Name, &o.Type, &o.ContactEmail, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}
