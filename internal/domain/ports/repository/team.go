package repository

import (
	"context"

	"classifieds-marketplace/internal/domain/model"
)

// TeamRepository resolves staff membership. Staff can exist as an explicit
// membership record or as a bare role flag on the user row, so the resolver
// gets both lookups.
type TeamRepository interface {
	FindByUserID(ctx context.Context, tx Tx, userID string) (*model.TeamMember, error)
	// HasPrivilegedRole is the fallback check for users flagged admin or
	// super_admin without a membership record.
	HasPrivilegedRole(ctx context.Context, tx Tx, userID string) (bool, error)
}
