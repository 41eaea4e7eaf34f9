package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"shopstack/backend/internal/dashboard"
	"shopstack/backend/internal/domain"
)

// RecordSale sells quantity units of a product. Stock is deducted and the
// sale inserted atomically; on any error neither happens.
func (s *Service) RecordSale(ctx context.Context, shopID string, req domain.SaleCreateRequest) (domain.Sale, error) {
	shop, actor, err := s.requireShop(ctx, shopID)
	if err != nil {
		return domain.Sale{}, err
	}

	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		return domain.Sale{}, invalid("product is required")
	}
	if req.Quantity <= 0 {
		return domain.Sale{}, invalid("quantity must be greater than zero")
	}

	sale, err := s.repo.InsertSale(ctx, shop.ID, productID, req.Quantity, s.now().UTC())
	if err != nil {
		return domain.Sale{}, err
	}
	s.dashboard.Invalidate(ctx, shop.ID)

	log.Info().
		Str("shop_id", shop.ID).
		Str("sale_id", sale.ID).
		Str("product_id", productID).
		Int("quantity", sale.Quantity).
		Str("amount", sale.Amount.String()).
		Str("actor", actor.UserID).
		Msg("sale recorded")
	return sale, nil
}

// DeleteSale removes the sale row only. Stock sold by it is not returned.
func (s *Service) DeleteSale(ctx context.Context, shopID string, saleID string) error {
	shop, actor, err := s.requireShopAdmin(ctx, shopID)
	if err != nil {
		return err
	}
	saleID = strings.TrimSpace(saleID)
	if saleID == "" {
		return invalid("sale is required")
	}

	if err := s.repo.DeleteSale(ctx, shop.ID, saleID); err != nil {
		return err
	}
	s.dashboard.Invalidate(ctx, shop.ID)
	log.Info().Str("shop_id", shop.ID).Str("sale_id", saleID).Str("actor", actor.UserID).Msg("sale deleted")
	return nil
}

func (s *Service) TodaySales(ctx context.Context, shopID string) (domain.SalesLedger, error) {
	from, to := s.todayWindow()
	return s.salesLedger(ctx, shopID, from, to)
}

// SalesInRange lists sales between two calendar dates, both inclusive.
func (s *Service) SalesInRange(ctx context.Context, shopID string, fromDate string, toDate string) (domain.SalesLedger, error) {
	from, to, err := s.dateWindow(fromDate, toDate)
	if err != nil {
		return domain.SalesLedger{}, err
	}
	return s.salesLedger(ctx, shopID, from, to)
}

func (s *Service) salesLedger(ctx context.Context, shopID string, from, to time.Time) (domain.SalesLedger, error) {
	shop, _, err := s.requireShop(ctx, shopID)
	if err != nil {
		return domain.SalesLedger{}, err
	}
	sales, err := s.repo.ListSales(ctx, shop.ID, from, to)
	if err != nil {
		return domain.SalesLedger{}, err
	}
	return domain.SalesLedger{
		Sales: sales,
		Count: len(sales),
		Total: dashboard.SumSales(sales),
		From:  from,
		To:    to,
	}, nil
}
