package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
)

// Compile-time check
var _ EntitlementUseCase = (*entitlementUC)(nil)

type EntitlementUseCase interface {
	// Resolve computes the user's current posting entitlement. Read-mostly,
	// but a first visit with no subscription may provision a starter grant;
	// callers must tolerate that write side effect.
	Resolve(ctx context.Context, userID string) (model.Entitlement, error)
}

type entitlementUC struct {
	subs     repository.SubscriptionRepository
	packages repository.PackageRepository
	team     repository.TeamRepository
	log      *zerolog.Logger
	now      func() time.Time
}

func NewEntitlementUseCase(
	subs repository.SubscriptionRepository,
	packages repository.PackageRepository,
	team repository.TeamRepository,
	logger *zerolog.Logger,
) *entitlementUC {
	return &entitlementUC{subs: subs, packages: packages, team: team, log: logger, now: func() time.Time { return time.Now().UTC() }}
}

func (u *entitlementUC) Resolve(ctx context.Context, userID string) (model.Entitlement, error) {
	if userID == "" {
		return model.DeniedEntitlement(), nil
	}

	bypass, err := u.isStaff(ctx, userID)
	if err != nil {
		return model.Entitlement{}, err
	}
	if bypass {
		return model.AdminEntitlement(), nil
	}

	sub, err := u.subs.FindCurrentByUser(ctx, repository.NoTX, userID)
	switch err {
	case nil:
		return u.entitlementFor(ctx, sub)
	case domain.ErrNotFound:
		return u.autoEnroll(ctx, userID)
	default:
		return model.Entitlement{}, fmt.Errorf("subscription lookup for %s: %w", userID, err)
	}
}

// isStaff checks staff status two ways: the membership record, and the
// privileged-role flag for staff without one. Either is sufficient.
func (u *entitlementUC) isStaff(ctx context.Context, userID string) (bool, error) {
	member, err := u.team.FindByUserID(ctx, repository.NoTX, userID)
	if err == nil {
		return member.IsPrivileged(), nil
	}
	if err != domain.ErrNotFound {
		return false, fmt.Errorf("team lookup for %s: %w", userID, err)
	}
	privileged, err := u.team.HasPrivilegedRole(ctx, repository.NoTX, userID)
	if err != nil && err != domain.ErrNotFound {
		return false, fmt.Errorf("role lookup for %s: %w", userID, err)
	}
	return privileged, nil
}

// autoEnroll grants the starter plan to a user with no qualifying
// subscription. The storage layer enforces at most one active subscription
// per user, so the losing writer of a concurrent first visit re-reads the
// winner's row instead of creating a duplicate. A lapsed row still holding
// status=active would block the insert forever, so it is demoted first.
func (u *entitlementUC) autoEnroll(ctx context.Context, userID string) (model.Entitlement, error) {
	starter, err := u.packages.FindStarter(ctx, repository.NoTX)
	if err == domain.ErrNotFound {
		return model.DeniedEntitlement(), nil
	}
	if err != nil {
		return model.Entitlement{}, fmt.Errorf("starter package lookup: %w", err)
	}

	// Two attempts: the second covers a blocking row that lapsed between the
	// conflicting insert and the re-read.
	for attempt := 0; attempt < 2; attempt++ {
		if err := u.subs.ExpireLapsed(ctx, repository.NoTX, userID); err != nil {
			return model.Entitlement{}, fmt.Errorf("expire lapsed subscriptions for %s: %w", userID, err)
		}

		sub, err := model.NewStarterSubscription(uuid.NewString(), userID, starter, u.now())
		if err != nil {
			return model.Entitlement{}, err
		}

		switch err := u.subs.Save(ctx, repository.NoTX, sub); err {
		case nil:
			u.log.Info().Str("user_id", userID).Str("package_id", starter.ID).Msg("starter plan auto-enrolled")
			ent := model.EntitlementFromSubscription(sub, starter)
			ent.AutoEnrolled = true
			return ent, nil
		case domain.ErrAlreadyExists:
			// Lost the race; the winner's row is the entitlement.
			existing, err := u.subs.FindCurrentByUser(ctx, repository.NoTX, userID)
			if err == domain.ErrNotFound {
				// The row that won the index is itself lapsed. Demote and retry.
				continue
			}
			if err != nil {
				return model.Entitlement{}, fmt.Errorf("re-read after enrollment race: %w", err)
			}
			return u.entitlementFor(ctx, existing)
		default:
			return model.Entitlement{}, fmt.Errorf("starter enrollment for %s: %w", userID, err)
		}
	}
	return model.Entitlement{}, fmt.Errorf("starter enrollment for %s: %w", userID, domain.ErrOperationFailed)
}

func (u *entitlementUC) entitlementFor(ctx context.Context, sub *model.SellerSubscription) (model.Entitlement, error) {
	if !sub.IsCurrent(u.now()) {
		// Expiry is evaluated at read time; a stale row denies rather than
		// entitles.
		return model.DeniedEntitlement(), nil
	}
	pkg, err := u.packages.FindByID(ctx, repository.NoTX, sub.PackageID)
	if err != nil {
		return model.Entitlement{}, fmt.Errorf("package lookup %s: %w", sub.PackageID, err)
	}
	return model.EntitlementFromSubscription(sub, pkg), nil
}
