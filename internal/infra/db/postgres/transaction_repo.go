package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

const txnColumns = `id, user_id, subscription_id, addon_purchase_id, checkout_request_id, merchant_request_id, phone_number, amount, status, result_code, result_desc, mpesa_receipt_number, transaction_date, created_at, updated_at`

func (r *transactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.PaymentTransaction) error {
	const q = `
INSERT INTO payment_transactions (` + txnColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
  status=EXCLUDED.status, result_code=EXCLUDED.result_code, result_desc=EXCLUDED.result_desc,
  mpesa_receipt_number=EXCLUDED.mpesa_receipt_number, transaction_date=EXCLUDED.transaction_date,
  updated_at=EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		t.ID, t.UserID, t.SubscriptionID, t.AddonPurchaseID, t.CheckoutRequestID, t.MerchantRequestID,
		t.PhoneNumber, t.Amount, t.Status, t.ResultCode, t.ResultDesc, t.MpesaReceiptNumber,
		t.TransactionDate, t.CreatedAt, t.UpdatedAt)
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

func (r *transactionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentTransaction, error) {
	const q = `SELECT ` + txnColumns + ` FROM payment_transactions WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanTxn(row)
}

func (r *transactionRepo) FindByCheckoutRequestID(ctx context.Context, tx repository.Tx, checkoutRequestID string) (*model.PaymentTransaction, error) {
	const q = `SELECT ` + txnColumns + ` FROM payment_transactions WHERE checkout_request_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, checkoutRequestID)
	if err != nil {
		return nil, err
	}
	return scanTxn(row)
}

// SettleByCheckoutRequestID is the callback's serialization point: the
// conditional WHERE status='pending' makes terminal writes happen at most
// once per correlation key, however many duplicate deliveries race.
func (r *transactionRepo) SettleByCheckoutRequestID(ctx context.Context, tx repository.Tx, checkoutRequestID string, outcome repository.CallbackOutcome) (bool, error) {
	const q = `
UPDATE payment_transactions
   SET status=$2, result_code=$3, result_desc=$4,
       mpesa_receipt_number=COALESCE($5, mpesa_receipt_number),
       transaction_date=COALESCE($6, transaction_date),
       updated_at=NOW()
 WHERE checkout_request_id=$1 AND status='pending';`

	tag, err := execSQL(ctx, r.pool, tx, q, checkoutRequestID, outcome.Status, outcome.ResultCode,
		outcome.ResultDesc, outcome.MpesaReceiptNumber, outcome.TransactionDate)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return false, err
		default:
			return false, domain.ErrOperationFailed
		}
	}
	return tag.RowsAffected() == 1, nil
}

func (r *transactionRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + txnColumns + ` FROM payment_transactions WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case pgx.ErrNoRows:
			return nil, domain.ErrNotFound
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.PaymentTransaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanTxn(row pgx.Row) (*model.PaymentTransaction, error) {
	t := &model.PaymentTransaction{}
	err := row.Scan(&t.ID, &t.UserID, &t.SubscriptionID, &t.AddonPurchaseID, &t.CheckoutRequestID,
		&t.MerchantRequestID, &t.PhoneNumber, &t.Amount, &t.Status, &t.ResultCode, &t.ResultDesc,
		&t.MpesaReceiptNumber, &t.TransactionDate, &t.CreatedAt, &t.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return t, nil
}
