package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"shopstack/backend/internal/dashboard"
	"shopstack/backend/internal/domain"
	"shopstack/backend/internal/xid"
)

func (s *Service) RecordExpense(ctx context.Context, shopID string, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	shop, actor, err := s.requireShop(ctx, shopID)
	if err != nil {
		return domain.Expense{}, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Expense{}, invalid("title is required")
	}
	if !req.Amount.IsPositive() {
		return domain.Expense{}, invalid("amount must be greater than zero")
	}
	if !wholeCents(req.Amount) {
		return domain.Expense{}, invalid("amount allows at most two decimal places")
	}

	expense := domain.Expense{
		ID:         xid.New("exp"),
		ShopID:     shop.ID,
		Title:      title,
		Amount:     req.Amount,
		Note:       strings.TrimSpace(req.Note),
		RecordedBy: actor.UserID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.InsertExpense(ctx, expense); err != nil {
		return domain.Expense{}, err
	}
	s.dashboard.Invalidate(ctx, shop.ID)

	log.Info().Str("shop_id", shop.ID).Str("expense_id", expense.ID).Str("amount", expense.Amount.String()).Msg("expense recorded")
	return expense, nil
}

func (s *Service) DeleteExpense(ctx context.Context, shopID string, expenseID string) error {
	shop, actor, err := s.requireShopAdmin(ctx, shopID)
	if err != nil {
		return err
	}
	expenseID = strings.TrimSpace(expenseID)
	if expenseID == "" {
		return invalid("expense is required")
	}

	if err := s.repo.DeleteExpense(ctx, shop.ID, expenseID); err != nil {
		return err
	}
	s.dashboard.Invalidate(ctx, shop.ID)
	log.Info().Str("shop_id", shop.ID).Str("expense_id", expenseID).Str("actor", actor.UserID).Msg("expense deleted")
	return nil
}

func (s *Service) TodayExpenses(ctx context.Context, shopID string) (domain.ExpenseLedger, error) {
	from, to := s.todayWindow()
	return s.expenseLedger(ctx, shopID, from, to)
}

func (s *Service) ExpensesInRange(ctx context.Context, shopID string, fromDate string, toDate string) (domain.ExpenseLedger, error) {
	from, to, err := s.dateWindow(fromDate, toDate)
	if err != nil {
		return domain.ExpenseLedger{}, err
	}
	return s.expenseLedger(ctx, shopID, from, to)
}

func (s *Service) expenseLedger(ctx context.Context, shopID string, from, to time.Time) (domain.ExpenseLedger, error) {
	shop, _, err := s.requireShop(ctx, shopID)
	if err != nil {
		return domain.ExpenseLedger{}, err
	}
	expenses, err := s.repo.ListExpenses(ctx, shop.ID, from, to)
	if err != nil {
		return domain.ExpenseLedger{}, err
	}
	return domain.ExpenseLedger{
		Expenses: expenses,
		Count:    len(expenses),
		Total:    dashboard.SumExpenses(expenses),
		From:     from,
		To:       to,
	}, nil
}
