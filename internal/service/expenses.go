package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/report"
)

func (s *Service) ListExpenses(ctx context.Context, rng report.DateRange) (domain.Sourced[[]domain.Expense], error) {
	return withFallback(ctx, s, "expenses",
		func(ctx context.Context) ([]domain.Expense, error) {
			expenses, err := listAll[domain.Expense](ctx, s.api, "/expenses", rangeQuery(rng))
			if err != nil {
				return nil, err
			}
			writeThrough(ctx, s.local.Expenses, expenses)
			return expenses, nil
		},
		func(ctx context.Context) ([]domain.Expense, error) {
			return s.local.Expenses.List(ctx, func(e domain.Expense) bool {
				return rng.Contains(e.OccurredAt())
			})
		},
	)
}

func validateExpense(req domain.ExpenseRequest) (domain.Expense, error) {
	if strings.TrimSpace(req.Description) == "" && strings.TrimSpace(req.Category) == "" {
		return domain.Expense{}, fmt.Errorf("%w: description or category is required", ErrInvalidInput)
	}
	if !req.Amount.IsPositive() {
		return domain.Expense{}, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}
	expense := domain.Expense{
		Category:    domain.Label(strings.TrimSpace(req.Category)),
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		Notes:       strings.TrimSpace(req.Notes),
	}
	if strings.TrimSpace(req.Date) != "" {
		date, err := domain.ParseTimestamp(req.Date)
		if err != nil {
			return domain.Expense{}, fmt.Errorf("%w: date: %v", ErrInvalidInput, err)
		}
		expense.Date = date
	}
	return expense, nil
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseRequest) (domain.Sourced[domain.Expense], error) {
	expense, err := validateExpense(req)
	if err != nil {
		return domain.Sourced[domain.Expense]{}, err
	}
	if expense.Date.IsZero() {
		expense.Date = domain.At(s.now())
	}
	return withFallback(ctx, s, "expenses",
		func(ctx context.Context) (domain.Expense, error) {
			var created domain.Expense
			if err := s.api.Post(ctx, "/expenses", req, &created); err != nil {
				return created, err
			}
			writeThrough(ctx, s.local.Expenses, []domain.Expense{created})
			return created, nil
		},
		func(ctx context.Context) (domain.Expense, error) {
			created, err := s.local.Expenses.Create(ctx, expense)
			if err == nil {
				s.logLocal(ctx, "create", "expense", created.ID, created.Description)
			}
			return created, err
		},
	)
}

func (s *Service) UpdateExpense(ctx context.Context, id domain.ID, req domain.ExpenseRequest) (domain.Sourced[domain.Expense], error) {
	expense, err := validateExpense(req)
	if err != nil {
		return domain.Sourced[domain.Expense]{}, err
	}
	return withFallback(ctx, s, "expenses",
		func(ctx context.Context) (domain.Expense, error) {
			var updated domain.Expense
			if err := s.api.Put(ctx, "/expenses/"+url.PathEscape(id.String()), req, &updated); err != nil {
				return updated, err
			}
			writeThrough(ctx, s.local.Expenses, []domain.Expense{updated})
			return updated, nil
		},
		func(ctx context.Context) (domain.Expense, error) {
			updated, err := s.local.Expenses.Modify(ctx, id, func(current *domain.Expense) error {
				if expense.Date.IsZero() {
					expense.Date = current.Date
				}
				expense.ID = current.ID
				*current = expense
				return nil
			})
			if err == nil {
				s.logLocal(ctx, "update", "expense", id, updated.Description)
			}
			return updated, err
		},
	)
}

func (s *Service) DeleteExpense(ctx context.Context, id domain.ID) (domain.Source, error) {
	result, err := withFallback(ctx, s, "expenses",
		func(ctx context.Context) (struct{}, error) {
			if err := s.api.Delete(ctx, "/expenses/"+url.PathEscape(id.String())); err != nil {
				return struct{}{}, err
			}
			forget(ctx, s.local.Expenses, id)
			return struct{}{}, nil
		},
		func(ctx context.Context) (struct{}, error) {
			if err := s.local.Expenses.Delete(ctx, id); err != nil {
				return struct{}{}, err
			}
			s.logLocal(ctx, "delete", "expense", id, "")
			return struct{}{}, nil
		},
	)
	return result.Source, err
}
