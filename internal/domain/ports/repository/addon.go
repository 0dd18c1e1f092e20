package repository

import (
	"context"

	"classifieds-marketplace/internal/domain/model"
)

// AddonRepository is the port for one-off seller add-on purchases.
type AddonRepository interface {
	Save(ctx context.Context, tx Tx, a *model.SellerAddon) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.SellerAddon, error)
	// Activate marks the purchase usable and stamps the provider receipt.
	Activate(ctx context.Context, tx Tx, id string, receipt *string) error
}
