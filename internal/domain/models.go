package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultLowStockAlert = 5

type Product struct {
	ID            string          `json:"id"`
	ShopID        string          `json:"shop_id"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Quantity      int             `json:"quantity"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	LowStockAlert int             `json:"low_stock_alert"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsLowStock reports whether the product is at or below its alert threshold.
func (p Product) IsLowStock() bool {
	return p.Quantity <= p.LowStockAlert
}

type ProductCreateRequest struct {
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Quantity      int             `json:"quantity"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	LowStockAlert *int            `json:"low_stock_alert,omitempty"`
}

type ProductUpdateRequest struct {
	Name          *string          `json:"name,omitempty"`
	Category      *string          `json:"category,omitempty"`
	Quantity      *int             `json:"quantity,omitempty"`
	CostPrice     *decimal.Decimal `json:"cost_price,omitempty"`
	SellingPrice  *decimal.Decimal `json:"selling_price,omitempty"`
	LowStockAlert *int             `json:"low_stock_alert,omitempty"`
}

type ProductQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type ProductQuery struct {
	Search string
	Page   int
	Limit  int
}

type ProductPage struct {
	Products   []Product `json:"products"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	Total      int       `json:"total"`
	TotalPages int       `json:"total_pages"`
}

// Sale is immutable once recorded. ProductName and UnitPrice are snapshots
// taken when the sale was inserted.
type Sale struct {
	ID          string          `json:"id"`
	ShopID      string          `json:"shop_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

type SaleCreateRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type SalesLedger struct {
	Sales []Sale          `json:"sales"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
	From  time.Time       `json:"from"`
	To    time.Time       `json:"to"`
}

type Expense struct {
	ID         string          `json:"id"`
	ShopID     string          `json:"shop_id"`
	Title      string          `json:"title"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note,omitempty"`
	RecordedBy string          `json:"recorded_by"`
	CreatedAt  time.Time       `json:"created_at"`
}

type ExpenseCreateRequest struct {
	Title  string          `json:"title"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note,omitempty"`
}

type ExpenseLedger struct {
	Expenses []Expense       `json:"expenses"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
	From     time.Time       `json:"from"`
	To       time.Time       `json:"to"`
}

type Shop struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	LogoURL   string    `json:"logo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ShopCreateRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type ShopUpdateRequest struct {
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
}

type Profile struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsAdmin   bool      `json:"is_admin"`
	ShopID    string    `json:"shop_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ProfileUpdateRequest struct {
	FullName string `json:"full_name"`
}

type MemberAddRequest struct {
	Email string `json:"email"`
}

type MemberUpdateRequest struct {
	IsAdmin bool `json:"is_admin"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string  `json:"access_token"`
	ExpiresAt   string  `json:"expires_at"`
	Profile     Profile `json:"profile"`
}

type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type Actor struct {
	UserID string
	Email  string
}

type DashboardPeriod string

const (
	PeriodDaily   DashboardPeriod = "daily"
	PeriodWeekly  DashboardPeriod = "weekly"
	PeriodMonthly DashboardPeriod = "monthly"
)

type DailyTotal struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

type TopProduct struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

type Dashboard struct {
	ShopID           string          `json:"shop_id"`
	ShopName         string          `json:"shop_name"`
	LogoURL          string          `json:"logo_url,omitempty"`
	Period           DashboardPeriod `json:"period"`
	From             time.Time       `json:"from"`
	To               time.Time       `json:"to"`
	Series           []DailyTotal    `json:"series"`
	TotalSales       decimal.Decimal `json:"total_sales"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	Profit           decimal.Decimal `json:"profit"`
	SalesCount       int             `json:"sales_count"`
	LowStock         []Product       `json:"low_stock"`
	TopProductsToday []TopProduct    `json:"top_products_today"`
	GeneratedAt      time.Time       `json:"generated_at"`
}
