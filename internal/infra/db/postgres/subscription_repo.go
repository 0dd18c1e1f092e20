package postgres

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subColumns = `id, user_id, package_id, status, payment_status, ads_used, starts_at, expires_at, mpesa_receipt, created_at, updated_at`

// Save relies on the partial unique index on (user_id) WHERE status='active'
// to reject a second active subscription for the same user; callers resolve
// the auto-enrollment race on the ErrAlreadyExists it returns.
func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.SellerSubscription) error {
	const q = `
INSERT INTO seller_subscriptions (` + subColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  status=EXCLUDED.status, payment_status=EXCLUDED.payment_status, ads_used=EXCLUDED.ads_used,
  starts_at=EXCLUDED.starts_at, expires_at=EXCLUDED.expires_at, mpesa_receipt=EXCLUDED.mpesa_receipt,
  updated_at=EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.UserID, s.PackageID, s.Status, s.PaymentStatus,
		s.AdsUsed, s.StartsAt, s.ExpiresAt, s.MpesaReceipt, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			if isUniqueViolation(err) {
				return domain.ErrAlreadyExists
			}
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SellerSubscription, error) {
	q := `SELECT ` + subColumns + ` FROM seller_subscriptions WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanSub(row)
}

func (r *subscriptionRepo) FindCurrentByUser(ctx context.Context, tx repository.Tx, userID string) (*model.SellerSubscription, error) {
	const q = `
SELECT ` + subColumns + `
  FROM seller_subscriptions
 WHERE user_id=$1 AND status='active' AND payment_status='completed'
   AND (expires_at IS NULL OR expires_at > NOW())
 ORDER BY created_at DESC
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanSub(row)
}

// Activate writes the absolute activation state in a single statement, so
// replays land on the same values instead of compounding.
func (r *subscriptionRepo) Activate(ctx context.Context, tx repository.Tx, id string, startsAt, expiresAt time.Time, receipt *string, resetAdsUsed bool) error {
	const q = `
UPDATE seller_subscriptions
   SET status='active', payment_status='completed',
       starts_at=$2, expires_at=$3,
       mpesa_receipt=COALESCE($4, mpesa_receipt),
       ads_used=CASE WHEN $5 THEN 0 ELSE ads_used END,
       updated_at=NOW()
 WHERE id=$1;`

	tag, err := execSQL(ctx, r.pool, tx, q, id, startsAt, expiresAt, receipt, resetAdsUsed)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			if isUniqueViolation(err) {
				return domain.ErrAlreadyExists
			}
			return domain.ErrOperationFailed
		}
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ExpireLapsed demotes active rows whose window has passed. Nothing else ever
// moves a row out of 'active', so this runs before any write that would
// otherwise trip the one-active-per-user index on a lapsed leftover.
func (r *subscriptionRepo) ExpireLapsed(ctx context.Context, tx repository.Tx, userID string) error {
	const q = `
UPDATE seller_subscriptions
   SET status='expired', updated_at=NOW()
 WHERE user_id=$1 AND status='active'
   AND expires_at IS NOT NULL AND expires_at <= NOW();`

	_, err := execSQL(ctx, r.pool, tx, q, userID)
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

// AcquireUserLock serializes per-user mutations with an advisory xact lock,
// released automatically at commit/rollback.
func (r *subscriptionRepo) AcquireUserLock(ctx context.Context, tx repository.Tx, userID string) error {
	_, err := execSQL(ctx, r.pool, tx, "SELECT pg_advisory_xact_lock($1)", hashToInt64(userID))
	return err
}

func hashToInt64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64() & ((1 << 63) - 1))
}

func scanSub(row pgx.Row) (*model.SellerSubscription, error) {
	s := &model.SellerSubscription{}
	err := row.Scan(&s.ID, &s.UserID, &s.PackageID, &s.Status, &s.PaymentStatus, &s.AdsUsed,
		&s.StartsAt, &s.ExpiresAt, &s.MpesaReceipt, &s.CreatedAt, &s.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}
