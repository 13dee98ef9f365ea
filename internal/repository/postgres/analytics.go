package postgres

import (
	"context"
	"database/sql"
	"time"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/repository"
)

type analyticsRepository struct {
	db DBTX
}

func NewAnalyticsRepository(db DBTX) repository.AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

func (r *analyticsRepository) CountOrganizations(ctx context.Context, orgType domain.OrganizationType) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM organizations WHERE type = $1`, orgType)
}

func (r *analyticsRepository) CountProviders(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM providers`)
}

func (r *analyticsRepository) CountServiceRequests(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM service_requests`)
}

func (r *analyticsRepository) CountDistinctEquipment(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(DISTINCT equipment_id) FROM service_requests`)
}

func (r *analyticsRepository) ListRevenueFacts(ctx context.Context) ([]domain.RevenueFact, error) {
	query := `SELECT q.id, q.amount, q.currency, sr.status, o.id, o.name, p.id, p.name
	          FROM quotes q
	          JOIN service_requests sr ON sr.id = q.service_request_id
	          JOIN organizations o ON o.id = sr.organization_id
	          JOIN providers p ON p.id = q.provider_id
	          WHERE q.status = 'accepted'`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var facts []domain.RevenueFact
	for rows.Next() {
		var f domain.RevenueFact
		if err := rows.Scan(&f.QuoteID, &f.Amount, &f.Currency, &f.ServiceRequestStatus,
			&f.HospitalID, &f.HospitalName, &f.ProviderID, &f.ProviderName); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func (r *analyticsRepository) ListOrganizationCreations(ctx context.Context, orgType domain.OrganizationType, since time.Time) ([]time.Time, error) {
	return r.times(ctx, `SELECT created_at FROM organizations WHERE type = $1 AND created_at >= $2`, orgType, since)
}

func (r *analyticsRepository) ListProviderCreations(ctx context.Context, since time.Time) ([]time.Time, error) {
	return r.times(ctx, `SELECT created_at FROM providers WHERE created_at >= $1`, since)
}

func (r *analyticsRepository) times(ctx context.Context, query string, args ...any) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *analyticsRepository) ListServiceRequestFacts(ctx context.Context, since time.Time) ([]domain.ServiceRequestFact, error) {
	query := `SELECT sr.id, sr.organization_id, o.name, sr.status, sr.created_at, sr.updated_at,
	                 (SELECT MIN(q.created_at) FROM quotes q WHERE q.service_request_id = sr.id)
	          FROM service_requests sr
	          JOIN organizations o ON o.id = sr.organization_id
	          WHERE sr.created_at >= $1
	          ORDER BY sr.created_at, sr.id`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var facts []domain.ServiceRequestFact
	for rows.Next() {
		var f domain.ServiceRequestFact
		var firstQuote sql.NullTime
		if err := rows.Scan(&f.ID, &f.OrganizationID, &f.OrganizationName, &f.Status, &f.CreatedAt, &f.UpdatedAt, &firstQuote); err != nil {
			return nil, err
		}
		f.FirstQuoteAt = nullTime(firstQuote)
		facts = append(facts, f)
	}
	return facts, rows.Err()
}
