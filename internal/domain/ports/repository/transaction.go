package repository

import (
	"context"
	"time"

	"classifieds-marketplace/internal/domain/model"
)

// CallbackOutcome is the absolute terminal state a provider callback writes
// onto a pending transaction. All fields are written as-is; nothing is
// incremented, so replays are safe.
type CallbackOutcome struct {
	Status             model.TransactionStatus
	ResultCode         int
	ResultDesc         string
	MpesaReceiptNumber *string
	TransactionDate    *time.Time
}

// TransactionRepository is the port for payment transactions.
type TransactionRepository interface {
	Save(ctx context.Context, tx Tx, t *model.PaymentTransaction) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentTransaction, error)
	// FindByCheckoutRequestID resolves the provider correlation key.
	// Returns domain.ErrNotFound when no transaction carries the key.
	FindByCheckoutRequestID(ctx context.Context, tx Tx, checkoutRequestID string) (*model.PaymentTransaction, error)
	// SettleByCheckoutRequestID conditionally writes the callback outcome onto
	// the still-pending transaction with this correlation key. It returns
	// (false, nil) when the row was already terminal, which callers treat as a
	// duplicate delivery and skip activation for.
	SettleByCheckoutRequestID(ctx context.Context, tx Tx, checkoutRequestID string, outcome CallbackOutcome) (settled bool, err error)
	// ListPendingOlderThan feeds the reconciler sweep.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.PaymentTransaction, error)
}
