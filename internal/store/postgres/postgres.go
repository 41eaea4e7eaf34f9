package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"shopstack/backend/internal/domain"
	"shopstack/backend/internal/store"
	"shopstack/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if user.ID == "" || email == "" || user.PasswordHash == "" {
		return store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, user.ID, email, user.PasswordHash, user.CreatedAt)
	return classify(err)
}

func (s *Store) CreateAccount(ctx context.Context, user domain.UserAccount, profile domain.Profile) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if user.ID == "" || email == "" || user.PasswordHash == "" || profile.UserID != user.ID {
		return store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, user.ID, email, user.PasswordHash, user.CreatedAt); err != nil {
		return classify(err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO profiles (user_id, email, full_name, is_admin, shop_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, email, profile.FullName, profile.IsAdmin, nullIfEmpty(profile.ShopID), profile.CreatedAt); err != nil {
		return classify(err)
	}
	return classify(tx.Commit())
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.UserAccount, error) {
	var u domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email))).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return domain.UserAccount{}, classify(err)
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (domain.UserAccount, error) {
	var u domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE id = $1
	`, userID).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return domain.UserAccount{}, classify(err)
	}
	return u, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, userID string, passwordHash string) error {
	if passwordHash == "" {
		return store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, passwordHash)
	return affectedOne(res, err)
}

func (s *Store) CreateProfile(ctx context.Context, profile domain.Profile) error {
	if profile.UserID == "" {
		return store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, email, full_name, is_admin, shop_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, profile.UserID, profile.Email, profile.FullName, profile.IsAdmin, nullIfEmpty(profile.ShopID), profile.CreatedAt)
	return classify(err)
}

const profileColumns = `user_id, email, full_name, is_admin, COALESCE(shop_id, ''), created_at`

func scanProfile(row interface{ Scan(...any) error }) (domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.UserID, &p.Email, &p.FullName, &p.IsAdmin, &p.ShopID, &p.CreatedAt)
	return p, err
}

func (s *Store) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
	if err != nil {
		return domain.Profile{}, classify(err)
	}
	return p, nil
}

func (s *Store) UpdateProfile(ctx context.Context, profile domain.Profile) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET full_name = $2, is_admin = $3, shop_id = $4
		WHERE user_id = $1
	`, profile.UserID, profile.FullName, profile.IsAdmin, nullIfEmpty(profile.ShopID))
	return affectedOne(res, err)
}

func (s *Store) ListProfilesByShop(ctx context.Context, shopID string) ([]domain.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE shop_id = $1 ORDER BY email
	`, shopID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	result := make([]domain.Profile, 0, 8)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, classify(err)
		}
		result = append(result, p)
	}
	return result, classify(rows.Err())
}

func (s *Store) CreateShop(ctx context.Context, shop domain.Shop) error {
	if shop.ID == "" || shop.OwnerID == "" || strings.TrimSpace(shop.Name) == "" {
		return store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shops (id, owner_id, name, address, logo_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, shop.ID, shop.OwnerID, shop.Name, shop.Address, nullIfEmpty(shop.LogoURL), shop.CreatedAt)
	return classify(err)
}

const shopColumns = `id, owner_id, name, address, COALESCE(logo_url, ''), created_at`

func scanShop(row interface{ Scan(...any) error }) (domain.Shop, error) {
	var shop domain.Shop
	err := row.Scan(&shop.ID, &shop.OwnerID, &shop.Name, &shop.Address, &shop.LogoURL, &shop.CreatedAt)
	return shop, err
}

func (s *Store) GetShop(ctx context.Context, shopID string) (domain.Shop, error) {
	shop, err := scanShop(s.db.QueryRowContext(ctx, `SELECT `+shopColumns+` FROM shops WHERE id = $1`, shopID))
	if err != nil {
		return domain.Shop{}, classify(err)
	}
	return shop, nil
}

func (s *Store) ListShopsByOwner(ctx context.Context, ownerID string) ([]domain.Shop, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+shopColumns+` FROM shops WHERE owner_id = $1 ORDER BY created_at, id
	`, ownerID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	result := make([]domain.Shop, 0, 4)
	for rows.Next() {
		shop, err := scanShop(rows)
		if err != nil {
			return nil, classify(err)
		}
		result = append(result, shop)
	}
	return result, classify(rows.Err())
}

func (s *Store) UpdateShop(ctx context.Context, shop domain.Shop) error {
	if strings.TrimSpace(shop.Name) == "" {
		return store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE shops SET name = $2, address = $3, logo_url = $4 WHERE id = $1
	`, shop.ID, shop.Name, shop.Address, nullIfEmpty(shop.LogoURL))
	return affectedOne(res, err)
}

// DeleteShop relies on ON DELETE CASCADE for products, sales and expenses.
func (s *Store) DeleteShop(ctx context.Context, shopID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
		UPDATE profiles SET shop_id = NULL, is_admin = false WHERE shop_id = $1
	`, shopID); err != nil {
		return classify(err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM shops WHERE id = $1`, shopID)
	if err := affectedOne(res, err); err != nil {
		return err
	}
	return classify(tx.Commit())
}

const productColumns = `id, shop_id, name, category, quantity, cost_price, selling_price, low_stock_alert, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.ShopID, &p.Name, &p.Category, &p.Quantity, &p.CostPrice, &p.SellingPrice, &p.LowStockAlert, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) ListProducts(ctx context.Context, shopID string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE shop_id = $1 ORDER BY lower(name), id
	`, shopID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, classify(err)
		}
		products = append(products, p)
	}
	return products, classify(rows.Err())
}

func (s *Store) GetProduct(ctx context.Context, shopID string, productID string) (domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products WHERE id = $1 AND shop_id = $2
	`, productID, shopID))
	if err != nil {
		return domain.Product{}, classify(err)
	}
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.ShopID, p.Name, p.Category, p.Quantity, p.CostPrice, p.SellingPrice, p.LowStockAlert, p.CreatedAt, p.UpdatedAt)
	return classify(err)
}

func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}
	updated, err := scanProduct(s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $3, category = $4, cost_price = $5, selling_price = $6,
		    low_stock_alert = $7, updated_at = $8
		WHERE id = $1 AND shop_id = $2
		RETURNING `+productColumns, p.ID, p.ShopID, p.Name, p.Category, p.CostPrice, p.SellingPrice, p.LowStockAlert, p.UpdatedAt))
	if err != nil {
		return domain.Product{}, classify(err)
	}
	return updated, nil
}

func (s *Store) UpdateProductQuantity(ctx context.Context, shopID string, productID string, quantity int) (domain.Product, error) {
	if quantity < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}
	p, err := scanProduct(s.db.QueryRowContext(ctx, `
		UPDATE products SET quantity = $3, updated_at = now()
		WHERE id = $1 AND shop_id = $2
		RETURNING `+productColumns, productID, shopID, quantity))
	if err != nil {
		return domain.Product{}, classify(err)
	}
	return p, nil
}

func (s *Store) DeleteProduct(ctx context.Context, shopID string, productID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1 AND shop_id = $2`, productID, shopID)
	return affectedOne(res, err)
}

// InsertSale uses a conditional decrement so two concurrent sales of the
// last unit cannot both succeed: the second UPDATE waits on the row lock and
// then matches no row.
func (s *Store) InsertSale(ctx context.Context, shopID string, productID string, qty int, at time.Time) (domain.Sale, error) {
	if qty <= 0 {
		return domain.Sale{}, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Sale{}, classify(err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var name string
	var price decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		UPDATE products
		SET quantity = quantity - $1, updated_at = $4
		WHERE id = $2 AND shop_id = $3 AND quantity >= $1
		RETURNING name, selling_price
	`, qty, productID, shopID, at).Scan(&name, &price)
	if errors.Is(err, sql.ErrNoRows) {
		var have int
		lookupErr := tx.QueryRowContext(ctx, `
			SELECT name, quantity FROM products WHERE id = $1 AND shop_id = $2
		`, productID, shopID).Scan(&name, &have)
		if lookupErr != nil {
			return domain.Sale{}, classify(lookupErr)
		}
		return domain.Sale{}, fmt.Errorf("%w: %s has %d left, %d requested", store.ErrInsufficientStock, name, have, qty)
	}
	if err != nil {
		return domain.Sale{}, classify(err)
	}

	sale := domain.Sale{
		ID:          xid.New("sale"),
		ShopID:      shopID,
		ProductID:   productID,
		ProductName: name,
		Quantity:    qty,
		UnitPrice:   price,
		Amount:      price.Mul(decimal.NewFromInt(int64(qty))),
		CreatedAt:   at,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sales (id, shop_id, product_id, product_name, quantity, unit_price, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, sale.ID, sale.ShopID, sale.ProductID, sale.ProductName, sale.Quantity, sale.UnitPrice, sale.Amount, sale.CreatedAt); err != nil {
		return domain.Sale{}, classify(err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Sale{}, classify(err)
	}
	return sale, nil
}

func (s *Store) DeleteSale(ctx context.Context, shopID string, saleID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1 AND shop_id = $2`, saleID, shopID)
	return affectedOne(res, err)
}

func (s *Store) ListSales(ctx context.Context, shopID string, from time.Time, to time.Time) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shop_id, product_id, product_name, quantity, unit_price, amount, created_at
		FROM sales
		WHERE shop_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC, id DESC
	`, shopID, from, to)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.ShopID, &sale.ProductID, &sale.ProductName, &sale.Quantity, &sale.UnitPrice, &sale.Amount, &sale.CreatedAt); err != nil {
			return nil, classify(err)
		}
		sales = append(sales, sale)
	}
	return sales, classify(rows.Err())
}

func (s *Store) InsertExpense(ctx context.Context, e domain.Expense) error {
	if e.ID == "" || strings.TrimSpace(e.Title) == "" || !e.Amount.IsPositive() {
		return store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, shop_id, title, amount, note, recorded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.ShopID, e.Title, e.Amount, nullIfEmpty(e.Note), e.RecordedBy, e.CreatedAt)
	return classify(err)
}

func (s *Store) DeleteExpense(ctx context.Context, shopID string, expenseID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1 AND shop_id = $2`, expenseID, shopID)
	return affectedOne(res, err)
}

func (s *Store) ListExpenses(ctx context.Context, shopID string, from time.Time, to time.Time) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shop_id, title, amount, COALESCE(note, ''), recorded_by, created_at
		FROM expenses
		WHERE shop_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC, id DESC
	`, shopID, from, to)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 32)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.ShopID, &e.Title, &e.Amount, &e.Note, &e.RecordedBy, &e.CreatedAt); err != nil {
			return nil, classify(err)
		}
		expenses = append(expenses, e)
	}
	return expenses, classify(rows.Err())
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

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// classify maps driver errors onto the store sentinels. Errors it does not
// recognise are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.Message)
		case "23505":
			return fmt.Errorf("%w: %s", store.ErrDuplicate, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", store.ErrNotFound, pgErr.ConstraintName)
		case "23502", "23514", "22P02", "22003":
			return fmt.Errorf("%w: %s", store.ErrInvalidInput, pgErr.Message)
		case "57P01", "57P03", "53300":
			return fmt.Errorf("%w: %s", store.ErrUnavailable, pgErr.Message)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), pgconn.Timeout(err):
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	case errors.As(err, &connErr), errors.As(err, &netErr):
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return err
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
