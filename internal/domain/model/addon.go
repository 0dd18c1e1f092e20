package model

import "time"

type AddonType string

const (
	AddonTypeBump    AddonType = "bump"    // push a listing back to the top
	AddonTypeFeature AddonType = "feature" // featured placement credits
)

type AddonStatus string

const (
	AddonStatusPending AddonStatus = "pending"
	AddonStatusActive  AddonStatus = "active"
	AddonStatusUsed    AddonStatus = "used"
)

// SellerAddon is a one-off purchasable credit, activated by the payment
// callback the same way subscriptions are.
type SellerAddon struct {
	ID            string // UUID
	UserID        string // UUID
	AddonType     AddonType
	Credits       int
	Status        AddonStatus
	PaymentStatus PaymentState
	MpesaReceipt  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
