package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
	"classifieds-marketplace/internal/infra/metrics"
	red "classifieds-marketplace/internal/infra/redis"
)

var _ repository.TeamRepository = (*teamRepoCacheDecorator)(nil)

// teamRepoCacheDecorator caches role lookups on the entitlement hot path.
// Misses are cached too (as an empty sentinel) so non-staff users do not hit
// Postgres on every read. Short TTL: role revocation must take effect quickly.
type teamRepoCacheDecorator struct {
	inner repository.TeamRepository
	cache red.RedisClient
	ttl   time.Duration
}

const teamMissSentinel = "__none__"

func NewTeamRepoCacheDecorator(inner repository.TeamRepository, cache red.RedisClient, ttl time.Duration) repository.TeamRepository {
	if ttl <= 0 || ttl > 5*time.Minute {
		ttl = 5 * time.Minute
	}
	return &teamRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func (d *teamRepoCacheDecorator) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.TeamMember, error) {
	key := fmt.Sprintf("team:%s", userID)
	if val, err := d.cache.Get(ctx, key); err == nil {
		metrics.IncCacheRequest("team", "hit")
		if val == teamMissSentinel {
			return nil, domain.ErrNotFound
		}
		var m model.TeamMember
		if json.Unmarshal([]byte(val), &m) == nil {
			return &m, nil
		}
	}
	metrics.IncCacheRequest("team", "miss")

	m, err := d.inner.FindByUserID(ctx, tx, userID)
	if err == domain.ErrNotFound {
		_ = d.cache.Set(ctx, key, teamMissSentinel, d.ttl)
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(m); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return m, nil
}

func (d *teamRepoCacheDecorator) HasPrivilegedRole(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	// The fallback check is rare (only users without a membership record);
	// not worth a second cache entry.
	return d.inner.HasPrivilegedRole(ctx, tx, userID)
}
