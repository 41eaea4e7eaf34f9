package dashboard

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"shopstack/backend/internal/cache"
	"shopstack/backend/internal/domain"
)

// Source is the read side of the repository the aggregator needs.
type Source interface {
	ListProducts(ctx context.Context, shopID string) ([]domain.Product, error)
	ListSales(ctx context.Context, shopID string, from time.Time, to time.Time) ([]domain.Sale, error)
	ListExpenses(ctx context.Context, shopID string, from time.Time, to time.Time) ([]domain.Expense, error)
}

type Aggregator struct {
	source   Source
	cache    cache.DashboardCache
	cacheTTL time.Duration
	loc      *time.Location
}

func NewAggregator(source Source, cacheStore cache.DashboardCache, cacheTTL time.Duration, loc *time.Location) *Aggregator {
	if cacheStore == nil {
		cacheStore = cache.NoopDashboardCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Aggregator{
		source:   source,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		loc:      loc,
	}
}

// Rollup returns the dashboard for shop over period as seen at now. A cached
// rollup is served only while the shop's cache version is unchanged.
func (a *Aggregator) Rollup(ctx context.Context, shop domain.Shop, period domain.DashboardPeriod, now time.Time) (domain.Dashboard, error) {
	from, to, err := PeriodRange(period, now, a.loc)
	if err != nil {
		return domain.Dashboard{}, err
	}

	version, err := a.cache.Version(ctx, shop.ID)
	if err != nil {
		log.Warn().Err(err).Str("shop_id", shop.ID).Msg("dashboard cache version unavailable, bypassing cache")
	}
	useCache := err == nil

	cacheKey := buildCacheKey(shop.ID, period, from, version)
	if useCache {
		if cached, ok, err := a.cache.Get(ctx, cacheKey); err == nil && ok {
			cached.ShopName = shop.Name
			cached.LogoURL = shop.LogoURL
			return *cached, nil
		} else if err != nil {
			log.Warn().Err(err).Str("shop_id", shop.ID).Msg("dashboard cache read failed")
		}
	}

	sales, err := a.source.ListSales(ctx, shop.ID, from, to)
	if err != nil {
		return domain.Dashboard{}, err
	}
	expenses, err := a.source.ListExpenses(ctx, shop.ID, from, to)
	if err != nil {
		return domain.Dashboard{}, err
	}
	products, err := a.source.ListProducts(ctx, shop.ID)
	if err != nil {
		return domain.Dashboard{}, err
	}

	totalSales := SumSales(sales)
	totalExpenses := SumExpenses(expenses)
	todayStart := DayStart(now, a.loc)

	resp := domain.Dashboard{
		ShopID:           shop.ID,
		ShopName:         shop.Name,
		LogoURL:          shop.LogoURL,
		Period:           period,
		From:             from,
		To:               to,
		Series:           DailySeries(sales, a.loc),
		TotalSales:       totalSales,
		TotalExpenses:    totalExpenses,
		Profit:           totalSales.Sub(totalExpenses),
		SalesCount:       len(sales),
		LowStock:         LowStock(products),
		TopProductsToday: TopProducts(salesSince(sales, todayStart), TopProductLimit),
		GeneratedAt:      now.UTC(),
	}

	if useCache {
		if err := a.cache.Set(ctx, cacheKey, &resp, a.cacheTTL); err != nil {
			log.Warn().Err(err).Str("shop_id", shop.ID).Msg("dashboard cache write failed")
		}
	}
	return resp, nil
}

// Invalidate makes every cached rollup of the shop stale. Failures are
// logged; the next read may serve a rollup until its TTL passes.
func (a *Aggregator) Invalidate(ctx context.Context, shopID string) {
	if err := a.cache.Bump(ctx, shopID); err != nil {
		log.Warn().Err(err).Str("shop_id", shopID).Msg("dashboard cache invalidation failed")
	}
}

func salesSince(sales []domain.Sale, start time.Time) []domain.Sale {
	result := make([]domain.Sale, 0, len(sales))
	for _, sale := range sales {
		if !sale.CreatedAt.Before(start) {
			result = append(result, sale)
		}
	}
	return result
}

func buildCacheKey(shopID string, period domain.DashboardPeriod, from time.Time, version int64) string {
	parts := []string{
		shopID,
		string(period),
		from.Format(time.RFC3339),
		fmt.Sprintf("v:%d", version),
	}
	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return "shopstack:dashboard:" + hex.EncodeToString(hash[:])
}
