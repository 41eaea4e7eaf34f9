package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"shopstack/backend/internal/domain"
	"shopstack/backend/internal/store"
)

func newStoreWithProduct(t *testing.T, qty int, price string) (*Store, domain.Product) {
	t.Helper()

	s := New()
	ctx := context.Background()
	if err := s.CreateUser(ctx, domain.UserAccount{ID: "u1", Email: "a@b.c", PasswordHash: "x"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.CreateShop(ctx, domain.Shop{ID: "shop-1", OwnerID: "u1", Name: "One"}); err != nil {
		t.Fatalf("create shop: %v", err)
	}
	p := domain.Product{
		ID:           "p1",
		ShopID:       "shop-1",
		Name:         "Widget",
		Quantity:     qty,
		SellingPrice: decimal.RequireFromString(price),
	}
	if err := s.CreateProduct(ctx, p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return s, p
}

func TestInsertSaleDecrementsStockAndSnapshotsPrice(t *testing.T) {
	s, p := newStoreWithProduct(t, 10, "100")
	ctx := context.Background()

	sale, err := s.InsertSale(ctx, "shop-1", p.ID, 3, time.Now().UTC())
	if err != nil {
		t.Fatalf("insert sale: %v", err)
	}
	if !sale.Amount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected amount 300, got %s", sale.Amount)
	}
	if sale.ProductName != "Widget" {
		t.Fatalf("expected product name snapshot, got %q", sale.ProductName)
	}

	got, _ := s.GetProduct(ctx, "shop-1", p.ID)
	if got.Quantity != 7 {
		t.Fatalf("expected quantity 7, got %d", got.Quantity)
	}
}

func TestInsertSaleInsufficientStockHasNoEffect(t *testing.T) {
	s, p := newStoreWithProduct(t, 2, "50")
	ctx := context.Background()

	_, err := s.InsertSale(ctx, "shop-1", p.ID, 3, time.Now().UTC())
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	got, _ := s.GetProduct(ctx, "shop-1", p.ID)
	if got.Quantity != 2 {
		t.Fatalf("expected quantity unchanged at 2, got %d", got.Quantity)
	}
	sales, _ := s.ListSales(ctx, "shop-1", time.Time{}, time.Now().Add(time.Hour))
	if len(sales) != 0 {
		t.Fatalf("expected no sales, got %d", len(sales))
	}
}

func TestInsertSaleOtherShopIsNotFound(t *testing.T) {
	s, p := newStoreWithProduct(t, 5, "10")

	_, err := s.InsertSale(context.Background(), "shop-2", p.ID, 1, time.Now().UTC())
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentSalesNeverOverdraw(t *testing.T) {
	s, p := newStoreWithProduct(t, 10, "1")
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.InsertSale(ctx, "shop-1", p.ID, 1, time.Now().UTC()); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Fatalf("expected exactly 10 successful sales, got %d", succeeded)
	}
	got, _ := s.GetProduct(ctx, "shop-1", p.ID)
	if got.Quantity != 0 {
		t.Fatalf("expected quantity 0, got %d", got.Quantity)
	}
}

func TestListSalesHalfOpenWindowNewestFirst(t *testing.T) {
	s, p := newStoreWithProduct(t, 10, "5")
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{day, day.Add(12 * time.Hour), day.Add(24 * time.Hour)} {
		if _, err := s.InsertSale(ctx, "shop-1", p.ID, 1, at); err != nil {
			t.Fatalf("insert sale: %v", err)
		}
	}

	sales, err := s.ListSales(ctx, "shop-1", day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 2 {
		t.Fatalf("expected 2 sales in window, got %d", len(sales))
	}
	if !sales[0].CreatedAt.After(sales[1].CreatedAt) {
		t.Fatalf("expected newest first, got %v then %v", sales[0].CreatedAt, sales[1].CreatedAt)
	}
}

func TestDeleteShopCascadesAndDetachesMembers(t *testing.T) {
	s, p := newStoreWithProduct(t, 4, "5")
	ctx := context.Background()

	if _, err := s.InsertSale(ctx, "shop-1", p.ID, 1, time.Now().UTC()); err != nil {
		t.Fatalf("insert sale: %v", err)
	}
	if err := s.CreateUser(ctx, domain.UserAccount{ID: "u2", Email: "m@b.c", PasswordHash: "x"}); err != nil {
		t.Fatalf("create member: %v", err)
	}
	if err := s.CreateProfile(ctx, domain.Profile{UserID: "u2", Email: "m@b.c", ShopID: "shop-1", IsAdmin: true}); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	if err := s.DeleteShop(ctx, "shop-1"); err != nil {
		t.Fatalf("delete shop: %v", err)
	}

	if _, err := s.GetProduct(ctx, "shop-1", p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected product removed, got %v", err)
	}
	sales, _ := s.ListSales(ctx, "shop-1", time.Time{}, time.Now().Add(time.Hour))
	if len(sales) != 0 {
		t.Fatalf("expected sales removed, got %d", len(sales))
	}
	member, _ := s.GetProfile(ctx, "u2")
	if member.ShopID != "" || member.IsAdmin {
		t.Fatalf("expected member detached, got %+v", member)
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateUser(ctx, domain.UserAccount{ID: "u1", Email: "Dup@Example.com", PasswordHash: "x"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	err := s.CreateUser(ctx, domain.UserAccount{ID: "u2", Email: "dup@example.com", PasswordHash: "x"})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestCreateAccountWritesUserAndProfileTogether(t *testing.T) {
	s := New()
	ctx := context.Background()

	user := domain.UserAccount{ID: "u1", Email: "New@Shop.Test", PasswordHash: "x"}
	if err := s.CreateAccount(ctx, user, domain.Profile{UserID: "u1", FullName: "New"}); err != nil {
		t.Fatalf("create account: %v", err)
	}
	profile, err := s.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.Email != "new@shop.test" {
		t.Fatalf("expected normalized profile email, got %q", profile.Email)
	}

	// A leftover profile under the new id must block the whole account.
	s.profiles["u2"] = domain.Profile{UserID: "u2"}
	err = s.CreateAccount(ctx, domain.UserAccount{ID: "u2", Email: "other@shop.test", PasswordHash: "x"}, domain.Profile{UserID: "u2"})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := s.GetUserByEmail(ctx, "other@shop.test"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no user after failed account creation, got %v", err)
	}
}

func TestUpdateProductNeverWritesQuantity(t *testing.T) {
	s, p := newStoreWithProduct(t, 10, "100")
	ctx := context.Background()

	stale, err := s.GetProduct(ctx, "shop-1", p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if _, err := s.InsertSale(ctx, "shop-1", p.ID, 3, time.Now()); err != nil {
		t.Fatalf("insert sale: %v", err)
	}

	stale.SellingPrice = decimal.NewFromInt(120)
	updated, err := s.UpdateProduct(ctx, stale)
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.Quantity != 7 || !updated.SellingPrice.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("expected quantity 7 and price 120, got %d and %s", updated.Quantity, updated.SellingPrice)
	}
	stored, _ := s.GetProduct(ctx, "shop-1", p.ID)
	if stored.Quantity != 7 {
		t.Fatalf("expected stored quantity 7, got %d", stored.Quantity)
	}
}
