package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
	"classifieds-marketplace/internal/infra/metrics"
	red "classifieds-marketplace/internal/infra/redis"
)

var _ repository.PackageRepository = (*packageRepoCacheDecorator)(nil)

// packageRepoCacheDecorator caches the read-mostly package catalog. Writes
// invalidate; the starter lookup gets its own key because it is on the hot
// entitlement path.
type packageRepoCacheDecorator struct {
	inner repository.PackageRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewPackageRepoCacheDecorator(inner repository.PackageRepository, cache red.RedisClient, ttl time.Duration) repository.PackageRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &packageRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func (d *packageRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPackage, error) {
	key := fmt.Sprintf("package:%s", id)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var pkg model.SubscriptionPackage
		if json.Unmarshal([]byte(val), &pkg) == nil {
			metrics.IncCacheRequest("package", "hit")
			return &pkg, nil
		}
	}
	metrics.IncCacheRequest("package", "miss")

	pkg, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(pkg); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return pkg, nil
}

func (d *packageRepoCacheDecorator) FindStarter(ctx context.Context, tx repository.Tx) (*model.SubscriptionPackage, error) {
	const key = "package:starter"
	if val, err := d.cache.Get(ctx, key); err == nil {
		var pkg model.SubscriptionPackage
		if json.Unmarshal([]byte(val), &pkg) == nil {
			metrics.IncCacheRequest("package_starter", "hit")
			return &pkg, nil
		}
	}
	metrics.IncCacheRequest("package_starter", "miss")

	pkg, err := d.inner.FindStarter(ctx, tx)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(pkg); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return pkg, nil
}

func (d *packageRepoCacheDecorator) ListActive(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPackage, error) {
	const key = "packages:active"
	if val, err := d.cache.Get(ctx, key); err == nil {
		var pkgs []*model.SubscriptionPackage
		if json.Unmarshal([]byte(val), &pkgs) == nil {
			metrics.IncCacheRequest("package_list", "hit")
			return pkgs, nil
		}
	}
	metrics.IncCacheRequest("package_list", "miss")

	pkgs, err := d.inner.ListActive(ctx, tx)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(pkgs); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return pkgs, nil
}

// Writes must invalidate before they land.
func (d *packageRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, pkg *model.SubscriptionPackage) error {
	_ = d.cache.Del(ctx, fmt.Sprintf("package:%s", pkg.ID), "package:starter", "packages:active")
	return d.inner.Save(ctx, tx, pkg)
}
