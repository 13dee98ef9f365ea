package postgres

import (
	"context"
	"database/sql"
	"time"

	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/repository"
)

type userRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (id, email, name, platform_role, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	var role sql.NullString
	if u.PlatformRole != domain.PlatformRoleNone {
		role = sql.NullString{String: string(u.PlatformRole), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Email, u.Name, role, u.CreatedAt, u.UpdatedAt)
	return mapError(err)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, email, name, COALESCE(platform_role, ''), created_at, updated_at FROM users WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name, &u.PlatformRole, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

type membershipRepository struct {
	db DBTX
}

func NewMembershipRepository(db DBTX) repository.MembershipRepository {
	return &membershipRepository{db: db}
}

const membershipColumns = `organization_id, user_id, role, joined_at, updated_at`

func (r *membershipRepository) Create(ctx context.Context, m *domain.Membership) error {
	query := `INSERT INTO memberships (` + membershipColumns + `) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, m.OrganizationID, m.UserID, m.Role, m.JoinedAt, m.UpdatedAt)
	return mapError(err)
}

func (r *membershipRepository) Get(ctx context.Context, orgID, userID string) (*domain.Membership, error) {
	m := &domain.Membership{}
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE organization_id = $1 AND user_id = $2`
	err := r.db.QueryRowContext(ctx, query, orgID, userID).Scan(&m.OrganizationID, &m.UserID, &m.Role, &m.JoinedAt, &m.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (r *membershipRepository) ListByOrganization(ctx context.Context, orgID string) ([]domain.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE organization_id = $1 ORDER BY joined_at, user_id`
	return r.list(ctx, query, orgID)
}

func (r *membershipRepository) ListByUser(ctx context.Context, userID string) ([]domain.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE user_id = $1 ORDER BY joined_at, organization_id`
	return r.list(ctx, query, userID)
}

func (r *membershipRepository) list(ctx context.Context, query string, arg string) ([]domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var memberships []domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.OrganizationID, &m.UserID, &m.Role, &m.JoinedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (r *membershipRepository) UpdateRole(ctx context.Context, orgID, userID string, role domain.MemberRole, updatedAt time.Time) error {
	query := `UPDATE memberships SET role = $1, updated_at = $2 WHERE organization_id = $3 AND user_id = $4`
	logger.DatabaseCall("UpdateRole", query, "organization_id", orgID, "user_id", userID)
	res, err := r.db.ExecContext(ctx, query, role, updatedAt, orgID, userID)
	if err != nil {
		logger.DatabaseResult("UpdateRole", 0, err)
		return mapError(err)
	}
	return requireOneRow(res, "UpdateRole")
}

func (r *membershipRepository) Delete(ctx context.Context, orgID, userID string) error {
	query := `DELETE FROM memberships WHERE organization_id = $1 AND user_id = $2`
	logger.DatabaseCall("DeleteMembership", query, "organization_id", orgID, "user_id", userID)
	res, err := r.db.ExecContext(ctx, query, orgID, userID)
	if err != nil {
		logger.DatabaseResult("DeleteMembership", 0, err)
		return mapError(err)
	}
	return requireOneRow(res, "DeleteMembership")
}

func (r *membershipRepository) CountByRole(ctx context.Context, orgID string, role domain.MemberRole) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM memberships WHERE organization_id = $1 AND role = $2`
	if err := r.db.QueryRowContext(ctx, query, orgID, role).Scan(&n); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

// requireOneRow reports NOT_FOUND when an update or delete touched nothing.
func requireOneRow(res sql.Result, operation string) error {
	n, err := res.RowsAffected()
	logger.DatabaseResult(operation, n, err)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
