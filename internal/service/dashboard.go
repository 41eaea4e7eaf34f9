package service

import (
	"context"
	"strings"

	"shopstack/backend/internal/domain"
)

// Dashboard returns the rollup for period, defaulting to daily.
func (s *Service) Dashboard(ctx context.Context, shopID string, period string) (domain.Dashboard, error) {
	shop, _, err := s.requireShop(ctx, shopID)
	if err != nil {
		return domain.Dashboard{}, err
	}

	p := domain.DashboardPeriod(strings.ToLower(strings.TrimSpace(period)))
	if p == "" {
		p = domain.PeriodDaily
	}
	return s.dashboard.Rollup(ctx, shop, p, s.now())
}
