package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
)

var _ repository.AddonRepository = (*addonRepo)(nil)

type addonRepo struct{ pool *pgxpool.Pool }

func NewAddonRepo(pool *pgxpool.Pool) *addonRepo {
	return &addonRepo{pool: pool}
}

const addonColumns = `id, user_id, addon_type, credits, status, payment_status, mpesa_receipt, created_at, updated_at`

func (r *addonRepo) Save(ctx context.Context, tx repository.Tx, a *model.SellerAddon) error {
	const q = `
INSERT INTO seller_addons (` + addonColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  status=EXCLUDED.status, payment_status=EXCLUDED.payment_status,
  mpesa_receipt=EXCLUDED.mpesa_receipt, updated_at=EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.UserID, a.AddonType, a.Credits, a.Status,
		a.PaymentStatus, a.MpesaReceipt, a.CreatedAt, a.UpdatedAt)
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

func (r *addonRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SellerAddon, error) {
	const q = `SELECT ` + addonColumns + ` FROM seller_addons WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	a := &model.SellerAddon{}
	err = row.Scan(&a.ID, &a.UserID, &a.AddonType, &a.Credits, &a.Status, &a.PaymentStatus,
		&a.MpesaReceipt, &a.CreatedAt, &a.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return a, nil
}

func (r *addonRepo) Activate(ctx context.Context, tx repository.Tx, id string, receipt *string) error {
	const q = `
UPDATE seller_addons
   SET status='active', payment_status='completed',
       mpesa_receipt=COALESCE($2, mpesa_receipt), updated_at=NOW()
 WHERE id=$1;`

	tag, err := execSQL(ctx, r.pool, tx, q, id, receipt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
