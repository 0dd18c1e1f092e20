package model

import (
	"time"

	"classifieds-marketplace/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

type PaymentState string

const (
	PaymentStateCompleted PaymentState = "completed"
	PaymentStateFailed    PaymentState = "failed"
	PaymentStatePending   PaymentState = "pending"
)

// SellerSubscription is a user's entitlement window against a package.
// Created pending at checkout initiation, or active directly when the
// resolver grants a starter plan. Expiry is evaluated at read time.
type SellerSubscription struct {
	ID            string // UUID
	UserID        string // UUID
	PackageID     string // UUID
	Status        SubscriptionStatus
	PaymentStatus PaymentState
	AdsUsed       int
	StartsAt      time.Time
	ExpiresAt     *time.Time
	MpesaReceipt  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewStarterSubscription builds an immediately-active grant of a zero-price
// package for a user who has no qualifying subscription.
func NewStarterSubscription(id, userID string, pkg *SubscriptionPackage, now time.Time) (*SellerSubscription, error) {
	if id == "" || userID == "" || pkg == nil {
		return nil, domain.ErrInvalidArgument
	}
	expires := now.Add(time.Duration(pkg.DurationDays) * 24 * time.Hour)
	return &SellerSubscription{
		ID:            id,
		UserID:        userID,
		PackageID:     pkg.ID,
		Status:        SubscriptionStatusActive,
		PaymentStatus: PaymentStateCompleted,
		AdsUsed:       0,
		StartsAt:      now,
		ExpiresAt:     &expires,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsCurrent reports whether the subscription entitles posting at the given
// instant: active, paid, and not past its expiry.
func (s *SellerSubscription) IsCurrent(now time.Time) bool {
	if s.Status != SubscriptionStatusActive || s.PaymentStatus != PaymentStateCompleted {
		return false
	}
	if s.ExpiresAt != nil && now.After(*s.ExpiresAt) {
		return false
	}
	return true
}
