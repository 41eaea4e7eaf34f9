package dashboard

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"shopstack/backend/internal/domain"
	"shopstack/backend/internal/store"
)

const (
	TopProductLimit = 5
	dateLayout      = "2006-01-02"
)

// DayStart returns local midnight of the calendar day containing t.
func DayStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// PeriodRange returns the half-open window [from, to) for period. Every
// window ends at the next local midnight; weekly and monthly reach back 6
// and 29 days before today.
func PeriodRange(period domain.DashboardPeriod, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	today := DayStart(now, loc)
	to := today.AddDate(0, 0, 1)

	switch period {
	case domain.PeriodDaily:
		return today, to, nil
	case domain.PeriodWeekly:
		return today.AddDate(0, 0, -6), to, nil
	case domain.PeriodMonthly:
		return today.AddDate(0, 0, -29), to, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown period %q", store.ErrInvalidInput, period)
	}
}

func SumSales(sales []domain.Sale) decimal.Decimal {
	total := decimal.Zero
	for _, sale := range sales {
		total = total.Add(sale.Amount)
	}
	return total
}

func SumExpenses(expenses []domain.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// DailySeries groups sale amounts by local calendar date in ascending order.
// Dates without sales are omitted.
func DailySeries(sales []domain.Sale, loc *time.Location) []domain.DailyTotal {
	byDate := make(map[string]decimal.Decimal)
	for _, sale := range sales {
		key := sale.CreatedAt.In(loc).Format(dateLayout)
		byDate[key] = byDate[key].Add(sale.Amount)
	}

	series := make([]domain.DailyTotal, 0, len(byDate))
	for date, amount := range byDate {
		series = append(series, domain.DailyTotal{Date: date, Amount: amount})
	}
	slices.SortFunc(series, func(a, b domain.DailyTotal) int {
		return strings.Compare(a.Date, b.Date)
	})
	return series
}

func LowStock(products []domain.Product) []domain.Product {
	result := make([]domain.Product, 0)
	for _, p := range products {
		if p.IsLowStock() {
			result = append(result, p)
		}
	}
	return result
}

// TopProducts sums quantity per product name and returns the limit highest.
// Equal quantities keep the order in which names first appear in sales.
func TopProducts(sales []domain.Sale, limit int) []domain.TopProduct {
	index := make(map[string]int)
	totals := make([]domain.TopProduct, 0)
	for _, sale := range sales {
		i, ok := index[sale.ProductName]
		if !ok {
			i = len(totals)
			index[sale.ProductName] = i
			totals = append(totals, domain.TopProduct{ProductName: sale.ProductName})
		}
		totals[i].Quantity += sale.Quantity
	}

	slices.SortStableFunc(totals, func(a, b domain.TopProduct) int {
		return b.Quantity - a.Quantity
	})
	if limit > 0 && len(totals) > limit {
		totals = totals[:limit]
	}
	return totals
}
