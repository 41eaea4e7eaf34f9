package store

import (
	"context"
	"errors"
	"time"

	"shopstack/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicate         = errors.New("already exists")
	// ErrConflict reports a write that lost a race with a concurrent writer and may be retried.
	ErrConflict = errors.New("concurrent modification")
	// ErrUnavailable reports that the backing store could not be reached in time.
	ErrUnavailable = errors.New("store unavailable")
)

// Repository is the persistence boundary. Every shop-scoped method takes the
// shop id explicitly; a row belonging to another shop is reported as ErrNotFound.
type Repository interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	// CreateAccount stores a new user together with its profile. Either both
	// rows are written or neither is.
	CreateAccount(ctx context.Context, user domain.UserAccount, profile domain.Profile) error
	GetUserByEmail(ctx context.Context, email string) (domain.UserAccount, error)
	GetUserByID(ctx context.Context, userID string) (domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, userID string, passwordHash string) error

	CreateProfile(ctx context.Context, profile domain.Profile) error
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	UpdateProfile(ctx context.Context, profile domain.Profile) error
	ListProfilesByShop(ctx context.Context, shopID string) ([]domain.Profile, error)

	CreateShop(ctx context.Context, shop domain.Shop) error
	GetShop(ctx context.Context, shopID string) (domain.Shop, error)
	ListShopsByOwner(ctx context.Context, ownerID string) ([]domain.Shop, error)
	UpdateShop(ctx context.Context, shop domain.Shop) error
	// DeleteShop removes the shop with its products, sales and expenses and
	// detaches member profiles.
	DeleteShop(ctx context.Context, shopID string) error

	ListProducts(ctx context.Context, shopID string) ([]domain.Product, error)
	GetProduct(ctx context.Context, shopID string, productID string) (domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) error
	// UpdateProduct writes every catalog field except quantity and returns
	// the stored row. Stock only moves through UpdateProductQuantity and
	// InsertSale.
	UpdateProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	UpdateProductQuantity(ctx context.Context, shopID string, productID string, quantity int) (domain.Product, error)
	DeleteProduct(ctx context.Context, shopID string, productID string) error

	// InsertSale decrements stock by qty and inserts the sale in one atomic
	// step. It returns ErrInsufficientStock without any effect when the
	// product holds fewer than qty units.
	InsertSale(ctx context.Context, shopID string, productID string, qty int, at time.Time) (domain.Sale, error)
	DeleteSale(ctx context.Context, shopID string, saleID string) error
	// ListSales returns sales with from <= created_at < to, newest first.
	ListSales(ctx context.Context, shopID string, from time.Time, to time.Time) ([]domain.Sale, error)

	InsertExpense(ctx context.Context, expense domain.Expense) error
	DeleteExpense(ctx context.Context, shopID string, expenseID string) error
	ListExpenses(ctx context.Context, shopID string, from time.Time, to time.Time) ([]domain.Expense, error)
}
