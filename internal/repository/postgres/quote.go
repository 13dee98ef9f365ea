package postgres

import (
	"context"
	"database/sql"
	"time"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/repository"

	"github.com/lib/pq"
)

type quoteRepository struct {
	db DBTX
}

func NewQuoteRepository(db DBTX) repository.QuoteRepository {
	return &quoteRepository{db: db}
}

const quoteColumns = `id, service_request_id, provider_id, submitted_by, status, amount, currency, valid_until,
	notes, estimated_duration_days, available_start_date, responded_at, created_at, updated_at`

func scanQuote(row rowScanner) (*domain.Quote, error) {
	q := &domain.Quote{}
	var validUntil, startDate, respondedAt sql.NullTime
	var notes sql.NullString
	var duration sql.NullInt64
	err := row.Scan(&q.ID, &q.ServiceRequestID, &q.ProviderID, &q.SubmittedBy, &q.Status, &q.Amount, &q.Currency, &validUntil,
		&notes, &duration, &startDate, &respondedAt, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	q.ValidUntil = nullTime(validUntil)
	q.Notes = nullString(notes)
	if duration.Valid {
		d := int(duration.Int64)
		q.EstimatedDurationDays = &d
	}
	q.AvailableStartDate = nullTime(startDate)
	q.RespondedAt = nullTime(respondedAt)
	return q, nil
}

func (r *quoteRepository) Create(ctx context.Context, q *domain.Quote) error {
	query := `INSERT INTO quotes (` + quoteColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	logger.DatabaseCall("CreateQuote", query, "service_request_id", q.ServiceRequestID, "provider_id", q.ProviderID)
	_, err := r.db.ExecContext(ctx, query, q.ID, q.ServiceRequestID, q.ProviderID, q.SubmittedBy, q.Status, q.Amount, q.Currency,
		q.ValidUntil, q.Notes, q.EstimatedDurationDays, q.AvailableStartDate, q.RespondedAt, q.CreatedAt, q.UpdatedAt)
	logger.DatabaseResult("CreateQuote", 1, err)
	return mapError(err)
}

func (r *quoteRepository) GetByID(ctx context.Context, id string) (*domain.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE id = $1`
	q, err := scanQuote(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return q, nil
}

func (r *quoteRepository) Update(ctx context.Context, q *domain.Quote) error {
	query := `UPDATE quotes SET status = $1, amount = $2, currency = $3, valid_until = $4, notes = $5,
	          estimated_duration_days = $6, available_start_date = $7, responded_at = $8, updated_at = $9
	          WHERE id = $10`
	logger.DatabaseCall("UpdateQuote", query, "quote_id", q.ID, "status", q.Status)
	res, err := r.db.ExecContext(ctx, query, q.Status, q.Amount, q.Currency, q.ValidUntil, q.Notes,
		q.EstimatedDurationDays, q.AvailableStartDate, q.RespondedAt, q.UpdatedAt, q.ID)
	if err != nil {
		logger.DatabaseResult("UpdateQuote", 0, err)
		return mapError(err)
	}
	return requireOneRow(res, "UpdateQuote")
}

func (r *quoteRepository) ListByServiceRequest(ctx context.Context, serviceRequestID string) ([]domain.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE service_request_id = $1 ORDER BY created_at, id`
	return r.list(ctx, query, serviceRequestID)
}

func (r *quoteRepository) ListByProviders(ctx context.Context, providerIDs []string, status domain.QuoteStatus) ([]domain.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes
	          WHERE provider_id = ANY($1) AND ($2 = '' OR status = $2)
	          ORDER BY created_at DESC, id`
	return r.list(ctx, query, pq.Array(providerIDs), string(status))
}

func (r *quoteRepository) CountByStatus(ctx context.Context, providerIDs []string) (map[domain.QuoteStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM quotes WHERE provider_id = ANY($1) GROUP BY status`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(providerIDs))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	counts := make(map[domain.QuoteStatus]int)
	for rows.Next() {
		var status domain.QuoteStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *quoteRepository) ListExpirable(ctx context.Context, now time.Time) ([]domain.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes
	          WHERE status = 'pending' AND valid_until IS NOT NULL AND valid_until < $1
	          ORDER BY valid_until, id`
	return r.list(ctx, query, now)
}

func (r *quoteRepository) list(ctx context.Context, query string, args ...any) ([]domain.Quote, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var quotes []domain.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *q)
	}
	return quotes, rows.Err()
}
