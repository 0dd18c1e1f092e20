package model

import "time"

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"   // STK push sent; awaiting provider callback
	TransactionStatusCompleted TransactionStatus = "completed" // provider reported success (ResultCode 0)
	TransactionStatusFailed    TransactionStatus = "failed"    // provider reported failure or cancellation
	TransactionStatusRefunded  TransactionStatus = "refunded"  // reversed after settlement
)

// PaymentTransaction records one mobile-money payment attempt. It is created
// when an STK push is initiated and mutated exactly once to a terminal status
// by the provider callback. Rows are never deleted.
type PaymentTransaction struct {
	ID     string // UUID
	UserID string // UUID

	// At most one of these is set; both nil means a free or manual grant.
	SubscriptionID  *string
	AddonPurchaseID *string

	// CheckoutRequestID is the provider correlation key. Unique in storage;
	// it is the serialization point for duplicate callback deliveries.
	CheckoutRequestID string
	MerchantRequestID string

	PhoneNumber string
	Amount      int64 // whole KES
	Status      TransactionStatus

	// Terminal outcome as reported by the provider callback.
	ResultCode         *int
	ResultDesc         *string
	MpesaReceiptNumber *string
	TransactionDate    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// References reports which entitlement the transaction pays for.
func (t *PaymentTransaction) References() (subscription, addon bool) {
	return t.SubscriptionID != nil, t.AddonPurchaseID != nil
}

// IsTerminal reports whether the callback already settled this transaction.
func (t *PaymentTransaction) IsTerminal() bool {
	return t.Status != TransactionStatusPending
}
