package repository

import (
	"context"

	"classifieds-marketplace/internal/domain/model"
)

// PackageRepository is the port for the (read-mostly) package catalog.
type PackageRepository interface {
	Save(ctx context.Context, tx Tx, pkg *model.SubscriptionPackage) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.SubscriptionPackage, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.SubscriptionPackage, error)
	// FindStarter returns the active zero-price package with the best display
	// priority, or domain.ErrNotFound when no free plan is configured.
	FindStarter(ctx context.Context, tx Tx) (*model.SubscriptionPackage, error)
}
