package repository

import (
	"context"
	"time"

	"classifieds-marketplace/internal/domain/model"
)

// ListingRepository is the slice of listing persistence the core needs.
type ListingRepository interface {
	Save(ctx context.Context, tx Tx, l *model.Listing) error
	// ReactivateDrafts moves up to limit of the user's draft listings to
	// active with the given expiry, most recently updated first, and returns
	// how many rows changed.
	ReactivateDrafts(ctx context.Context, tx Tx, userID string, limit int, expiresAt time.Time) (int, error)
	CountActiveByUser(ctx context.Context, tx Tx, userID string) (int, error)
}
