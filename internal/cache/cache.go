package cache

import (
	"context"
	"time"

	"shopstack/backend/internal/domain"
)

// DashboardCache stores computed dashboard rollups. Version returns a per-shop
// counter that Bump increments; callers fold it into their keys so a bump
// makes every older entry unreachable.
type DashboardCache interface {
	Get(ctx context.Context, key string) (*domain.Dashboard, bool, error)
	Set(ctx context.Context, key string, value *domain.Dashboard, ttl time.Duration) error
	Version(ctx context.Context, shopID string) (int64, error)
	Bump(ctx context.Context, shopID string) error
}

type NoopDashboardCache struct{}

func (NoopDashboardCache) Get(_ context.Context, _ string) (*domain.Dashboard, bool, error) {
	return nil, false, nil
}

func (NoopDashboardCache) Set(_ context.Context, _ string, _ *domain.Dashboard, _ time.Duration) error {
	return nil
}

func (NoopDashboardCache) Version(_ context.Context, _ string) (int64, error) {
	return 0, nil
}

func (NoopDashboardCache) Bump(_ context.Context, _ string) error {
	return nil
}
