//go:build !integration

package postgres

import (
	"context"
	"time"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
	red "classifieds-marketplace/internal/infra/redis"
)

// mockRedisClient is a Func-field stand-in for the real client.
type mockRedisClient struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc func(ctx context.Context, keys ...string) error

	SetCalls []string
	DelCalls [][]string
}

var _ red.RedisClient = (*mockRedisClient)(nil)

func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return "", red.Nil
}

func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.SetCalls = append(m.SetCalls, key)
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return nil
}

func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	m.DelCalls = append(m.DelCalls, keys)
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}
	return nil
}

func (m *mockRedisClient) Close() error { return nil }

// mockInnerPackageRepo lets decorator tests observe pass-through calls.
type mockInnerPackageRepo struct {
	SaveFunc        func(ctx context.Context, tx repository.Tx, pkg *model.SubscriptionPackage) error
	FindByIDFunc    func(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPackage, error)
	ListActiveFunc  func(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPackage, error)
	FindStarterFunc func(ctx context.Context, tx repository.Tx) (*model.SubscriptionPackage, error)
}

var _ repository.PackageRepository = (*mockInnerPackageRepo)(nil)

func (m *mockInnerPackageRepo) Save(ctx context.Context, tx repository.Tx, pkg *model.SubscriptionPackage) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, pkg)
	}
	return nil
}

func (m *mockInnerPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPackage, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	return nil, nil
}

func (m *mockInnerPackageRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPackage, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx, tx)
	}
	return nil, nil
}

func (m *mockInnerPackageRepo) FindStarter(ctx context.Context, tx repository.Tx) (*model.SubscriptionPackage, error) {
	if m.FindStarterFunc != nil {
		return m.FindStarterFunc(ctx, tx)
	}
	return nil, nil
}

// mockInnerTeamRepo backs the team cache decorator tests.
type mockInnerTeamRepo struct {
	FindByUserIDFunc      func(ctx context.Context, tx repository.Tx, userID string) (*model.TeamMember, error)
	HasPrivilegedRoleFunc func(ctx context.Context, tx repository.Tx, userID string) (bool, error)
}

var _ repository.TeamRepository = (*mockInnerTeamRepo)(nil)

func (m *mockInnerTeamRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.TeamMember, error) {
	if m.FindByUserIDFunc != nil {
		return m.FindByUserIDFunc(ctx, tx, userID)
	}
	return nil, nil
}

func (m *mockInnerTeamRepo) HasPrivilegedRole(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	if m.HasPrivilegedRoleFunc != nil {
		return m.HasPrivilegedRoleFunc(ctx, tx, userID)
	}
	return false, nil
}
