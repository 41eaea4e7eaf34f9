package memory

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"shopstack/backend/internal/domain"
	"shopstack/backend/internal/store"
	"shopstack/backend/internal/xid"
)

type Store struct {
	mu            sync.RWMutex
	users         map[string]domain.UserAccount
	userIDByEmail map[string]string
	profiles      map[string]domain.Profile
	shops         map[string]domain.Shop
	products      map[string]domain.Product
	sales         map[string]domain.Sale
	expenses      map[string]domain.Expense
}

func New() *Store {
	return &Store{
		users:         make(map[string]domain.UserAccount),
		userIDByEmail: make(map[string]string),
		profiles:      make(map[string]domain.Profile),
		shops:         make(map[string]domain.Shop),
		products:      make(map[string]domain.Product),
		sales:         make(map[string]domain.Sale),
		expenses:      make(map[string]domain.Expense),
	}
}

// NewSeeded returns a store holding one demo owner, one shop and a small
// catalog for dev mode. The owner password comes from SEED_OWNER_PASSWORD;
// when unset a dev default is used and a warning is logged.
func NewSeeded() *Store {
	s := New()

	email := strings.ToLower(envOr("SEED_OWNER_EMAIL", "owner@shopstack.local"))
	password := envOr("SEED_OWNER_PASSWORD", "owner123")
	if os.Getenv("SEED_OWNER_PASSWORD") == "" {
		log.Warn().Str("email", email).Msg("memory store: using default dev credentials, set SEED_OWNER_PASSWORD to override")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal().Err(err).Msg("memory store: failed to hash seed password")
	}

	now := time.Now().UTC()
	owner := domain.UserAccount{ID: "user-demo-owner", Email: email, PasswordHash: string(hash), CreatedAt: now}
	shop := domain.Shop{ID: "shop-demo", OwnerID: owner.ID, Name: "Demo Shop", Address: "12 Market Road", CreatedAt: now}

	s.users[owner.ID] = owner
	s.userIDByEmail[owner.Email] = owner.ID
	s.profiles[owner.ID] = domain.Profile{UserID: owner.ID, Email: owner.Email, FullName: "Demo Owner", CreatedAt: now}
	s.shops[shop.ID] = shop

	for i, p := range []struct {
		name     string
		category string
		qty      int
		cost     string
		price    string
	}{
		{"Rice 5kg", "grocery", 40, "3800", "4500"},
		{"Vegetable Oil 1L", "grocery", 25, "1650", "2000"},
		{"Sugar 1kg", "grocery", 4, "900", "1200"},
		{"Bottled Water 75cl", "beverage", 120, "120", "200"},
		{"Malt Drink", "beverage", 60, "350", "500"},
		{"Bath Soap", "household", 3, "280", "400"},
		{"Detergent 500g", "household", 18, "700", "950"},
	} {
		id := fmt.Sprintf("prod-demo-%02d", i+1)
		s.products[id] = domain.Product{
			ID:            id,
			ShopID:        shop.ID,
			Name:          p.name,
			Category:      p.category,
			Quantity:      p.qty,
			CostPrice:     decimal.RequireFromString(p.cost),
			SellingPrice:  decimal.RequireFromString(p.price),
			LowStockAlert: domain.DefaultLowStockAlert,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if user.ID == "" || email == "" || user.PasswordHash == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.userIDByEmail[email]; exists {
		return store.ErrDuplicate
	}
	if _, exists := s.users[user.ID]; exists {
		return store.ErrDuplicate
	}
	user.Email = email
	s.users[user.ID] = user
	s.userIDByEmail[email] = user.ID
	return nil
}

func (s *Store) CreateAccount(_ context.Context, user domain.UserAccount, profile domain.Profile) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if user.ID == "" || email == "" || user.PasswordHash == "" || profile.UserID != user.ID {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.userIDByEmail[email]; exists {
		return store.ErrDuplicate
	}
	if _, exists := s.users[user.ID]; exists {
		return store.ErrDuplicate
	}
	if _, exists := s.profiles[user.ID]; exists {
		return store.ErrDuplicate
	}
	user.Email = email
	profile.Email = email
	s.users[user.ID] = user
	s.userIDByEmail[email] = user.ID
	s.profiles[user.ID] = profile
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.userIDByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return domain.UserAccount{}, store.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) GetUserByID(_ context.Context, userID string) (domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return domain.UserAccount{}, store.ErrNotFound
	}
	return user, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, userID string, passwordHash string) error {
	if passwordHash == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	s.users[userID] = user
	return nil
}

func (s *Store) CreateProfile(_ context.Context, profile domain.Profile) error {
	if profile.UserID == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[profile.UserID]; !ok {
		return store.ErrNotFound
	}
	if _, exists := s.profiles[profile.UserID]; exists {
		return store.ErrDuplicate
	}
	s.profiles[profile.UserID] = profile
	return nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return domain.Profile{}, store.ErrNotFound
	}
	return profile, nil
}

func (s *Store) UpdateProfile(_ context.Context, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.profiles[profile.UserID]
	if !ok {
		return store.ErrNotFound
	}
	if profile.ShopID != "" {
		if _, ok := s.shops[profile.ShopID]; !ok {
			return store.ErrNotFound
		}
	}
	current.FullName = profile.FullName
	current.IsAdmin = profile.IsAdmin
	current.ShopID = profile.ShopID
	s.profiles[profile.UserID] = current
	return nil
}

func (s *Store) ListProfilesByShop(_ context.Context, shopID string) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Profile, 0)
	for _, p := range s.profiles {
		if p.ShopID == shopID {
			result = append(result, p)
		}
	}
	slices.SortFunc(result, func(a, b domain.Profile) int {
		return strings.Compare(a.Email, b.Email)
	})
	return result, nil
}

func (s *Store) CreateShop(_ context.Context, shop domain.Shop) error {
	if shop.ID == "" || shop.OwnerID == "" || strings.TrimSpace(shop.Name) == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[shop.OwnerID]; !ok {
		return store.ErrNotFound
	}
	if _, exists := s.shops[shop.ID]; exists {
		return store.ErrDuplicate
	}
	s.shops[shop.ID] = shop
	return nil
}

func (s *Store) GetShop(_ context.Context, shopID string) (domain.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shop, ok := s.shops[shopID]
	if !ok {
		return domain.Shop{}, store.ErrNotFound
	}
	return shop, nil
}

func (s *Store) ListShopsByOwner(_ context.Context, ownerID string) ([]domain.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Shop, 0)
	for _, shop := range s.shops {
		if shop.OwnerID == ownerID {
			result = append(result, shop)
		}
	}
	slices.SortFunc(result, func(a, b domain.Shop) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result, nil
}

func (s *Store) UpdateShop(_ context.Context, shop domain.Shop) error {
	if strings.TrimSpace(shop.Name) == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.shops[shop.ID]
	if !ok {
		return store.ErrNotFound
	}
	current.Name = shop.Name
	current.Address = shop.Address
	current.LogoURL = shop.LogoURL
	s.shops[shop.ID] = current
	return nil
}

func (s *Store) DeleteShop(_ context.Context, shopID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shops[shopID]; !ok {
		return store.ErrNotFound
	}
	delete(s.shops, shopID)
	for id, p := range s.products {
		if p.ShopID == shopID {
			delete(s.products, id)
		}
	}
	for id, sale := range s.sales {
		if sale.ShopID == shopID {
			delete(s.sales, id)
		}
	}
	for id, e := range s.expenses {
		if e.ShopID == shopID {
			delete(s.expenses, id)
		}
	}
	for id, p := range s.profiles {
		if p.ShopID == shopID {
			p.ShopID = ""
			p.IsAdmin = false
			s.profiles[id] = p
		}
	}
	return nil
}

func (s *Store) ListProducts(_ context.Context, shopID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0)
	for _, p := range s.products {
		if p.ShopID == shopID {
			result = append(result, p)
		}
	}
	slices.SortFunc(result, func(a, b domain.Product) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result, nil
}

func (s *Store) GetProduct(_ context.Context, shopID string, productID string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok || p.ShopID != shopID {
		return domain.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shops[product.ShopID]; !ok {
		return store.ErrNotFound
	}
	if _, exists := s.products[product.ID]; exists {
		return store.ErrDuplicate
	}
	s.products[product.ID] = product
	return nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return domain.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[product.ID]
	if !ok || current.ShopID != product.ShopID {
		return domain.Product{}, store.ErrNotFound
	}
	product.Quantity = current.Quantity
	product.CreatedAt = current.CreatedAt
	s.products[product.ID] = product
	return product, nil
}

func (s *Store) UpdateProductQuantity(_ context.Context, shopID string, productID string, quantity int) (domain.Product, error) {
	if quantity < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok || p.ShopID != shopID {
		return domain.Product{}, store.ErrNotFound
	}
	p.Quantity = quantity
	p.UpdatedAt = time.Now().UTC()
	s.products[productID] = p
	return p, nil
}

func (s *Store) DeleteProduct(_ context.Context, shopID string, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok || p.ShopID != shopID {
		return store.ErrNotFound
	}
	delete(s.products, productID)
	return nil
}

func (s *Store) InsertSale(_ context.Context, shopID string, productID string, qty int, at time.Time) (domain.Sale, error) {
	if qty <= 0 {
		return domain.Sale{}, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok || p.ShopID != shopID {
		return domain.Sale{}, store.ErrNotFound
	}
	if p.Quantity < qty {
		return domain.Sale{}, fmt.Errorf("%w: %s has %d left, %d requested", store.ErrInsufficientStock, p.Name, p.Quantity, qty)
	}

	p.Quantity -= qty
	p.UpdatedAt = at
	s.products[productID] = p

	sale := domain.Sale{
		ID:          xid.New("sale"),
		ShopID:      shopID,
		ProductID:   productID,
		ProductName: p.Name,
		Quantity:    qty,
		UnitPrice:   p.SellingPrice,
		Amount:      p.SellingPrice.Mul(decimal.NewFromInt(int64(qty))),
		CreatedAt:   at,
	}
	s.sales[sale.ID] = sale
	return sale, nil
}

func (s *Store) DeleteSale(_ context.Context, shopID string, saleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[saleID]
	if !ok || sale.ShopID != shopID {
		return store.ErrNotFound
	}
	delete(s.sales, saleID)
	return nil
}

func (s *Store) ListSales(_ context.Context, shopID string, from time.Time, to time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0)
	for _, sale := range s.sales {
		if sale.ShopID == shopID && inWindow(sale.CreatedAt, from, to) {
			result = append(result, sale)
		}
	}
	slices.SortFunc(result, func(a, b domain.Sale) int {
		return newestFirst(a.CreatedAt, a.ID, b.CreatedAt, b.ID)
	})
	return result, nil
}

func (s *Store) InsertExpense(_ context.Context, expense domain.Expense) error {
	if expense.ID == "" || strings.TrimSpace(expense.Title) == "" || !expense.Amount.IsPositive() {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shops[expense.ShopID]; !ok {
		return store.ErrNotFound
	}
	if _, exists := s.expenses[expense.ID]; exists {
		return store.ErrDuplicate
	}
	s.expenses[expense.ID] = expense
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, shopID string, expenseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.expenses[expenseID]
	if !ok || e.ShopID != shopID {
		return store.ErrNotFound
	}
	delete(s.expenses, expenseID)
	return nil
}

func (s *Store) ListExpenses(_ context.Context, shopID string, from time.Time, to time.Time) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Expense, 0)
	for _, e := range s.expenses {
		if e.ShopID == shopID && inWindow(e.CreatedAt, from, to) {
			result = append(result, e)
		}
	}
	slices.SortFunc(result, func(a, b domain.Expense) int {
		return newestFirst(a.CreatedAt, a.ID, b.CreatedAt, b.ID)
	})
	return result, nil
}

func validateProduct(p domain.Product) error {
	if p.ID == "" || p.ShopID == "" || strings.TrimSpace(p.Name) == "" {
		return store.ErrInvalidInput
	}
	if p.Quantity < 0 || p.LowStockAlert < 0 || p.CostPrice.IsNegative() || p.SellingPrice.IsNegative() {
		return store.ErrInvalidInput
	}
	return nil
}

func inWindow(at, from, to time.Time) bool {
	return !at.Before(from) && at.Before(to)
}

func newestFirst(aAt time.Time, aID string, bAt time.Time, bID string) int {
	if c := bAt.Compare(aAt); c != 0 {
		return c
	}
	return strings.Compare(bID, aID)
}

