package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/icesco/PersonalFinance-sub002/internal/core"
	"github.com/icesco/PersonalFinance-sub002/internal/ledger"
)

// BudgetStore is the read surface budget and goal reporting needs.
type BudgetStore interface {
	ListBudgets(ctx context.Context, accountID uuid.UUID) ([]core.Budget, error)
	ListCategories(ctx context.Context, accountID uuid.UUID) ([]core.Category, error)
	ListSavingsGoals(ctx context.Context, accountID uuid.UUID) ([]core.SavingsGoal, error)
	ListConti(ctx context.Context, accountID uuid.UUID) ([]core.Conto, error)
	ListSnapshots(ctx context.Context, accountID uuid.UUID) ([]core.Snapshot, error)
	SumExpensesByCategory(ctx context.Context, accountID uuid.UUID, from, to time.Time) (map[uuid.UUID]decimal.Decimal, error)
}

type BudgetService struct {
	store BudgetStore
}

func NewBudgetService(store BudgetStore) *BudgetService {
	return &BudgetService{store: store}
}

// BudgetStatus is one budget with its spending so far in the current
// period.
type BudgetStatus struct {
	Budget       core.Budget
	CategoryName string
	Spent        decimal.Decimal
	Remaining    decimal.Decimal
	Exceeded     bool
}

// Statuses reports every budget of the account against the spending
// in its current period (calendar month or calendar year containing
// now).
func (s *BudgetService) Statuses(ctx context.Context, accountID uuid.UUID, now time.Time) ([]BudgetStatus, error) {
	budgets, err := s.store.ListBudgets(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	if len(budgets) == 0 {
		return nil, nil
	}

	categories, err := s.store.ListCategories(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	names := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	monthFrom, monthTo := periodBounds(now, core.BudgetMonthly)
	yearFrom, yearTo := periodBounds(now, core.BudgetYearly)

	monthSpent, err := s.store.SumExpensesByCategory(ctx, accountID, monthFrom, monthTo)
	if err != nil {
		return nil, fmt.Errorf("sum monthly expenses: %w", err)
	}
	yearSpent, err := s.store.SumExpensesByCategory(ctx, accountID, yearFrom, yearTo)
	if err != nil {
		return nil, fmt.Errorf("sum yearly expenses: %w", err)
	}

	out := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		spent := monthSpent[b.CategoryID]
		if b.Period == core.BudgetYearly {
			spent = yearSpent[b.CategoryID]
		}
		remaining := b.Amount.Sub(spent)
		out = append(out, BudgetStatus{
			Budget:       b,
			CategoryName: names[b.CategoryID],
			Spent:        spent,
			Remaining:    remaining,
			Exceeded:     remaining.IsNegative(),
		})
	}
	return out, nil
}

// GoalProgress is one savings goal measured against the balance of
// its conto (or the whole account when no conto is set).
type GoalProgress struct {
	Goal     core.SavingsGoal
	Current  decimal.Decimal
	Fraction float64 // 0 when the target is zero
	Reached  bool
}

func (s *BudgetService) GoalProgresses(ctx context.Context, accountID uuid.UUID, now time.Time) ([]GoalProgress, error) {
	goals, err := s.store.ListSavingsGoals(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	if len(goals) == 0 {
		return nil, nil
	}

	conti, err := s.store.ListConti(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list conti: %w", err)
	}
	snaps, err := s.store.ListSnapshots(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	balances := make(map[uuid.UUID]decimal.Decimal, len(conti))
	total := decimal.Zero
	for _, c := range conti {
		if !c.Active {
			continue
		}
		b := ledger.ContoBalance(c.InitialBalance, snaps, c.ID, now)
		balances[c.ID] = b
		total = total.Add(b)
	}

	out := make([]GoalProgress, 0, len(goals))
	for _, g := range goals {
		current := total
		if g.ContoID != nil {
			current = balances[*g.ContoID]
		}
		p := GoalProgress{Goal: g, Current: current}
		if g.Target.IsPositive() {
			frac, _ := current.Div(g.Target).Float64()
			p.Fraction = frac
			p.Reached = current.GreaterThanOrEqual(g.Target)
		}
		out = append(out, p)
	}
	return out, nil
}

func periodBounds(now time.Time, period core.BudgetPeriod) (from, to time.Time) {
	switch period {
	case core.BudgetYearly:
		from = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return from, from.AddDate(1, 0, 0)
	default:
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return from, from.AddDate(0, 1, 0)
	}
}
