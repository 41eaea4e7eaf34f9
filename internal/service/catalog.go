package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"shopstack/backend/internal/domain"
	"shopstack/backend/internal/xid"
)

const (
	defaultProductPageSize = 10
	maxProductPageSize     = 100
)

// GetProducts returns the full catalog of a shop ordered by name.
func (s *Service) GetProducts(ctx context.Context, shopID string) ([]domain.Product, error) {
	shop, _, err := s.requireShop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListProducts(ctx, shop.ID)
}

// ListProducts filters the catalog by a case-insensitive substring of name
// or category and returns one page of it.
func (s *Service) ListProducts(ctx context.Context, shopID string, q domain.ProductQuery) (domain.ProductPage, error) {
	products, err := s.GetProducts(ctx, shopID)
	if err != nil {
		return domain.ProductPage{}, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultProductPageSize
	}
	if limit > maxProductPageSize {
		limit = maxProductPageSize
	}
	page := q.Page
	if page < 1 {
		page = 1
	}

	needle := strings.ToLower(strings.TrimSpace(q.Search))
	matched := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if needle == "" ||
			strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Category), needle) {
			matched = append(matched, p)
		}
	}

	total := len(matched)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return domain.ProductPage{
		Products:   matched[start:end],
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

func (s *Service) GetProduct(ctx context.Context, shopID string, productID string) (domain.Product, error) {
	shop, _, err := s.requireShop(ctx, shopID)
	if err != nil {
		return domain.Product{}, err
	}
	return s.repo.GetProduct(ctx, shop.ID, strings.TrimSpace(productID))
}

func (s *Service) CreateProduct(ctx context.Context, shopID string, req domain.ProductCreateRequest) (domain.Product, error) {
	shop, _, err := s.requireShop(ctx, shopID)
	if err != nil {
		return domain.Product{}, err
	}

	lowStockAlert := domain.DefaultLowStockAlert
	if req.LowStockAlert != nil {
		lowStockAlert = *req.LowStockAlert
	}
	now := s.now().UTC()
	product := domain.Product{
		ID:            xid.New("prod"),
		ShopID:        shop.ID,
		Name:          strings.TrimSpace(req.Name),
		Category:      strings.TrimSpace(req.Category),
		Quantity:      req.Quantity,
		CostPrice:     req.CostPrice,
		SellingPrice:  req.SellingPrice,
		LowStockAlert: lowStockAlert,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := validateProduct(product); err != nil {
		return domain.Product{}, err
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return domain.Product{}, err
	}
	s.dashboard.Invalidate(ctx, shop.ID)
	return product, nil
}

// UpdateProduct applies the fields present in req. Recorded sales keep the
// price they were sold at. Catalog fields and stock are written separately so
// a sale landing between the read and the write is never undone.
func (s *Service) UpdateProduct(ctx context.Context, shopID string, productID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	shop, _, err := s.requireShop(ctx, shopID)
	if err != nil {
		return domain.Product{}, err
	}
	if req.Quantity != nil && *req.Quantity < 0 {
		return domain.Product{}, invalid("quantity cannot be negative")
	}

	product, err := s.repo.GetProduct(ctx, shop.ID, strings.TrimSpace(productID))
	if err != nil {
		return domain.Product{}, err
	}
	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
	}
	if req.CostPrice != nil {
		product.CostPrice = *req.CostPrice
	}
	if req.SellingPrice != nil {
		product.SellingPrice = *req.SellingPrice
	}
	if req.LowStockAlert != nil {
		product.LowStockAlert = *req.LowStockAlert
	}
	product.UpdatedAt = s.now().UTC()
	if err := validateProduct(product); err != nil {
		return domain.Product{}, err
	}

	product, err = s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	if req.Quantity != nil {
		product, err = s.repo.UpdateProductQuantity(ctx, shop.ID, product.ID, *req.Quantity)
		if err != nil {
			return domain.Product{}, err
		}
	}
	s.dashboard.Invalidate(ctx, shop.ID)
	return product, nil
}

// UpdateProductQuantity sets the stock level to an absolute value.
func (s *Service) UpdateProductQuantity(ctx context.Context, shopID string, productID string, quantity int) (domain.Product, error) {
	shop, _, err := s.requireShop(ctx, shopID)
	if err != nil {
		return domain.Product{}, err
	}
	if quantity < 0 {
		return domain.Product{}, invalid("quantity cannot be negative")
	}

	product, err := s.repo.UpdateProductQuantity(ctx, shop.ID, strings.TrimSpace(productID), quantity)
	if err != nil {
		return domain.Product{}, err
	}
	s.dashboard.Invalidate(ctx, shop.ID)
	return product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, shopID string, productID string) error {
	shop, _, err := s.requireShopAdmin(ctx, shopID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, shop.ID, strings.TrimSpace(productID)); err != nil {
		return err
	}
	s.dashboard.Invalidate(ctx, shop.ID)
	return nil
}

func validateProduct(p domain.Product) error {
	switch {
	case p.Name == "":
		return invalid("product name is required")
	case p.Quantity < 0:
		return invalid("quantity cannot be negative")
	case p.CostPrice.LessThan(decimal.Zero):
		return invalid("cost price cannot be negative")
	case p.SellingPrice.LessThan(decimal.Zero):
		return invalid("selling price cannot be negative")
	case !wholeCents(p.CostPrice) || !wholeCents(p.SellingPrice):
		return invalid("prices allow at most two decimal places")
	case p.LowStockAlert < 0:
		return invalid("low stock alert cannot be negative")
	}
	return nil
}

// wholeCents reports whether d fits the two-decimal money columns exactly.
func wholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
