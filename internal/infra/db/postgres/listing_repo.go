package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
)

var _ repository.ListingRepository = (*listingRepo)(nil)

type listingRepo struct{ pool *pgxpool.Pool }

func NewListingRepo(pool *pgxpool.Pool) *listingRepo {
	return &listingRepo{pool: pool}
}

func (r *listingRepo) Save(ctx context.Context, tx repository.Tx, l *model.Listing) error {
	const q = `
INSERT INTO base_listings (id, user_id, title, category, status, expires_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  title=EXCLUDED.title, category=EXCLUDED.category, status=EXCLUDED.status,
  expires_at=EXCLUDED.expires_at, updated_at=EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q, l.ID, l.UserID, l.Title, l.Category, l.Status,
		l.ExpiresAt, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

// ReactivateDrafts promotes the user's freshest drafts back to active, capped
// at the new plan's quota. Recency tie-break: the listings the seller edited
// last are the ones most likely still wanted.
func (r *listingRepo) ReactivateDrafts(ctx context.Context, tx repository.Tx, userID string, limit int, expiresAt time.Time) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	const q = `
UPDATE base_listings
   SET status='active', expires_at=$3, updated_at=NOW()
 WHERE id IN (
   SELECT id FROM base_listings
    WHERE user_id=$1 AND status='draft'
    ORDER BY updated_at DESC
    LIMIT $2
 );`

	tag, err := execSQL(ctx, r.pool, tx, q, userID, limit, expiresAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return 0, err
		default:
			return 0, domain.ErrOperationFailed
		}
	}
	return int(tag.RowsAffected()), nil
}

func (r *listingRepo) CountActiveByUser(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	const q = `SELECT COUNT(*) FROM base_listings WHERE user_id=$1 AND status='active';`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
