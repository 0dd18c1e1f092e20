package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.PackageRepository = (*packageRepo)(nil)

type packageRepo struct {
	pool *pgxpool.Pool
}

func NewPackageRepo(pool *pgxpool.Pool) *packageRepo {
	return &packageRepo{pool: pool}
}

const pkgColumns = `id, name, price, duration_days, max_ads, allowed_categories, analytics_access, display_priority, is_active, created_at`

func (r *packageRepo) Save(ctx context.Context, tx repository.Tx, pkg *model.SubscriptionPackage) error {
	const q = `
INSERT INTO subscription_packages (` + pkgColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  name=EXCLUDED.name, price=EXCLUDED.price, duration_days=EXCLUDED.duration_days,
  max_ads=EXCLUDED.max_ads, allowed_categories=EXCLUDED.allowed_categories,
  analytics_access=EXCLUDED.analytics_access, display_priority=EXCLUDED.display_priority,
  is_active=EXCLUDED.is_active;`

	_, err := execSQL(ctx, r.pool, tx, q, pkg.ID, pkg.Name, pkg.Price, pkg.DurationDays,
		pkg.MaxAds, pkg.AllowedCategories, pkg.AnalyticsAccess, pkg.DisplayPriority,
		pkg.IsActive, pkg.CreatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *packageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPackage, error) {
	const q = `SELECT ` + pkgColumns + ` FROM subscription_packages WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPkg(row)
}

func (r *packageRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPackage, error) {
	const q = `SELECT ` + pkgColumns + ` FROM subscription_packages WHERE is_active ORDER BY display_priority ASC, price ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.SubscriptionPackage
	for rows.Next() {
		p, err := scanPkg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *packageRepo) FindStarter(ctx context.Context, tx repository.Tx) (*model.SubscriptionPackage, error) {
	const q = `
SELECT ` + pkgColumns + `
  FROM subscription_packages
 WHERE price=0 AND is_active
 ORDER BY display_priority ASC
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	return scanPkg(row)
}

func scanPkg(row pgx.Row) (*model.SubscriptionPackage, error) {
	p := &model.SubscriptionPackage{}
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.DurationDays, &p.MaxAds, &p.AllowedCategories,
		&p.AnalyticsAccess, &p.DisplayPriority, &p.IsActive, &p.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
