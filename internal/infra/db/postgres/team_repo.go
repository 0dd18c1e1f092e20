package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
)

var _ repository.TeamRepository = (*teamRepo)(nil)

type teamRepo struct{ pool *pgxpool.Pool }

func NewTeamRepo(pool *pgxpool.Pool) *teamRepo {
	return &teamRepo{pool: pool}
}

func (r *teamRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.TeamMember, error) {
	const q = `
SELECT user_id, role, manage_listings, manage_payments, manage_users, view_analytics, created_at
  FROM team_members
 WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	m := &model.TeamMember{}
	err = row.Scan(&m.UserID, &m.Role, &m.Permissions.ManageListings, &m.Permissions.ManagePayments,
		&m.Permissions.ManageUsers, &m.Permissions.ViewAnalytics, &m.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return m, nil
}

// HasPrivilegedRole covers staff represented only by a role flag on the user
// row, without a team_members record.
func (r *teamRepo) HasPrivilegedRole(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1 AND role IN ('admin','super_admin'));`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return false, err
	}
	var privileged bool
	if err := row.Scan(&privileged); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return privileged, nil
}
