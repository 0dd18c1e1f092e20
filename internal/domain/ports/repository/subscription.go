package repository

import (
	"context"
	"time"

	"classifieds-marketplace/internal/domain/model"
)

// SubscriptionRepository is the port for seller subscriptions.
type SubscriptionRepository interface {
	// Save inserts or updates. Inserting a second active subscription for the
	// same user violates the storage-layer uniqueness constraint and returns
	// domain.ErrAlreadyExists; the auto-enrollment race resolves on that.
	Save(ctx context.Context, tx Tx, s *model.SellerSubscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.SellerSubscription, error)
	// FindCurrentByUser returns the subscription with status=active and
	// payment_status=completed whose expiry has not passed, or
	// domain.ErrNotFound.
	FindCurrentByUser(ctx context.Context, tx Tx, userID string) (*model.SellerSubscription, error)
	// Activate writes the absolute activation state in one statement. A second
	// active subscription for the user violates the uniqueness constraint and
	// returns domain.ErrAlreadyExists; callers demote lapsed rows first.
	Activate(ctx context.Context, tx Tx, id string, startsAt, expiresAt time.Time, receipt *string, resetAdsUsed bool) error
	// ExpireLapsed demotes the user's active rows whose expiry has passed to
	// status=expired. Conditional absolute-state write; replay-safe and a
	// no-op when nothing has lapsed.
	ExpireLapsed(ctx context.Context, tx Tx, userID string) error
	// AcquireUserLock serializes multi-step mutations for one user. No-op for
	// non-transactional stores.
	AcquireUserLock(ctx context.Context, tx Tx, userID string) error
}
