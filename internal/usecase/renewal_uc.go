package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
)

// Compile-time checks
var (
	_ RenewalUseCase        = (*renewalUC)(nil)
	_ SubscriptionActivator = (*renewalUC)(nil)
)

// RenewalResult is what the UI displays after a renewal.
type RenewalResult struct {
	ReactivatedListings int
	ExpiresAt           time.Time
}

type RenewalUseCase interface {
	// Renew activates the subscription window against the given package and
	// reclaims ad slots by moving the user's most recently updated drafts
	// back to active, capped at the package quota.
	Renew(ctx context.Context, userID, subscriptionID, packageID string) (*RenewalResult, error)
}

type renewalUC struct {
	subs          repository.SubscriptionRepository
	packages      repository.PackageRepository
	listings      repository.ListingRepository
	notifications repository.NotificationRepository
	tm            repository.TransactionManager
	log           *zerolog.Logger
	newULID       func() string
}

func NewRenewalUseCase(
	subs repository.SubscriptionRepository,
	packages repository.PackageRepository,
	listings repository.ListingRepository,
	notifications repository.NotificationRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *renewalUC {
	return &renewalUC{
		subs:          subs,
		packages:      packages,
		listings:      listings,
		notifications: notifications,
		tm:            tm,
		log:           logger,
		newULID:       newNotificationID,
	}
}

func (u *renewalUC) Renew(ctx context.Context, userID, subscriptionID, packageID string) (*RenewalResult, error) {
	if userID == "" || subscriptionID == "" || packageID == "" {
		return nil, domain.ErrInvalidArgument
	}

	pkg, err := u.packages.FindByID(ctx, repository.NoTX, packageID)
	if err != nil {
		return nil, fmt.Errorf("load package %s: %w", packageID, err)
	}

	now := time.Now().UTC()
	expires := now.Add(time.Duration(pkg.DurationDays) * 24 * time.Hour)
	reactivated := 0

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.subs.AcquireUserLock(ctx, tx, userID); err != nil {
			return err
		}
		sub, err := u.subs.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return fmt.Errorf("load subscription %s: %w", subscriptionID, err)
		}
		if sub.UserID != userID {
			return domain.ErrNotFound
		}
		// A lapsed row still holding status=active would collide with the
		// one-active-per-user constraint when this one goes active.
		if err := u.subs.ExpireLapsed(ctx, tx, userID); err != nil {
			return fmt.Errorf("expire lapsed subscriptions: %w", err)
		}
		if err := u.subs.Activate(ctx, tx, sub.ID, now, expires, sub.MpesaReceipt, true); err != nil {
			return fmt.Errorf("activate subscription: %w", err)
		}
		n, err := u.listings.ReactivateDrafts(ctx, tx, userID, pkg.MaxAds, expires)
		if err != nil {
			return fmt.Errorf("reactivate drafts: %w", err)
		}
		reactivated = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.notifyActivation(ctx, userID, pkg.DurationDays, reactivated)

	return &RenewalResult{ReactivatedListings: reactivated, ExpiresAt: expires}, nil
}

// ActivateFromPayment applies the callback-driven activation inside the
// caller's transaction. When the package row is missing the window falls back
// to a fixed duration and no drafts are reactivated, so the activation itself
// still lands.
func (u *renewalUC) ActivateFromPayment(ctx context.Context, tx repository.Tx, subscriptionID string, receipt *string) error {
	sub, err := u.subs.FindByID(ctx, tx, subscriptionID)
	if err != nil {
		return err
	}

	durationDays := fallbackDurationDays
	maxAds := 0
	pkg, err := u.packages.FindByID(ctx, tx, sub.PackageID)
	if err == nil {
		durationDays = pkg.DurationDays
		maxAds = pkg.MaxAds
	} else if err != domain.ErrNotFound {
		return err
	} else {
		u.log.Warn().Str("package_id", sub.PackageID).Str("subscription_id", subscriptionID).
			Msg("package missing on activation, using fallback window")
	}

	now := time.Now().UTC()
	expires := now.Add(time.Duration(durationDays) * 24 * time.Hour)
	if err := u.subs.ExpireLapsed(ctx, tx, sub.UserID); err != nil {
		return err
	}
	if err := u.subs.Activate(ctx, tx, sub.ID, now, expires, receipt, true); err != nil {
		return err
	}

	reactivated := 0
	if maxAds > 0 {
		if reactivated, err = u.listings.ReactivateDrafts(ctx, tx, sub.UserID, maxAds, expires); err != nil {
			return err
		}
	}

	// Inside the transaction: a replayed callback never reaches activation, so
	// the notification cannot duplicate either.
	u.saveNotification(ctx, tx, sub.UserID, durationDays, reactivated)
	return nil
}

func (u *renewalUC) notifyActivation(ctx context.Context, userID string, durationDays, reactivated int) {
	// Best-effort after commit; a lost notification is not worth failing a
	// renewal the user already paid for.
	if err := u.saveNotificationErr(ctx, repository.NoTX, userID, durationDays, reactivated); err != nil {
		u.log.Warn().Err(err).Str("user_id", userID).Msg("activation notification not saved")
	}
}

func (u *renewalUC) saveNotification(ctx context.Context, tx repository.Tx, userID string, durationDays, reactivated int) {
	if err := u.saveNotificationErr(ctx, tx, userID, durationDays, reactivated); err != nil {
		u.log.Warn().Err(err).Str("user_id", userID).Msg("activation notification not saved")
	}
}

func (u *renewalUC) saveNotificationErr(ctx context.Context, tx repository.Tx, userID string, durationDays, reactivated int) error {
	body := fmt.Sprintf("Your subscription is active for %d days.", durationDays)
	if reactivated > 0 {
		body = fmt.Sprintf("%s %d of your draft listings are live again.", body, reactivated)
	}
	return u.notifications.Save(ctx, tx, &model.Notification{
		ID:        u.newULID(),
		UserID:    userID,
		Kind:      model.NotificationKindSubscription,
		Title:     "Subscription activated",
		Body:      body,
		CreatedAt: time.Now().UTC(),
	})
}
