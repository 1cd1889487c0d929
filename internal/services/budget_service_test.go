package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/icesco/PersonalFinance-sub002/internal/core"
)

func TestBudgetStatuses(t *testing.T) {
	store, account, checking, _ := seedBalanceStore()
	groceries := core.Category{ID: uuid.New(), AccountID: account.ID, Name: "Alimentari"}
	travel := core.Category{ID: uuid.New(), AccountID: account.ID, Name: "Viaggi"}
	store.categories = []core.Category{groceries, travel}
	store.budgets = []core.Budget{
		{ID: uuid.New(), AccountID: account.ID, CategoryID: groceries.ID,
			Amount: decimal.NewFromInt(400), Period: core.BudgetMonthly},
		{ID: uuid.New(), AccountID: account.ID, CategoryID: travel.ID,
			Amount: decimal.NewFromInt(1000), Period: core.BudgetYearly},
	}

	now := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	expense := func(cat uuid.UUID, amount int64, date time.Time) core.Transaction {
		return core.Transaction{
			ID: uuid.New(), AccountID: account.ID, Amount: decimal.NewFromInt(amount),
			Type: core.TypeExpense, Date: date, SourceContoID: &checking.ID,
			CategoryID: &cat, Description: "spesa",
		}
	}
	store.transactions = []core.Transaction{
		// groceries: 450 this month (over the 400 budget), 100 last month
		expense(groceries.ID, 450, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)),
		expense(groceries.ID, 100, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)),
		// travel: 300 in January counts toward the yearly budget
		expense(travel.ID, 300, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)),
	}

	svc := NewBudgetService(store)
	statuses, err := svc.Statuses(context.Background(), account.ID, now)
	if err != nil {
		t.Fatalf("Statuses: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want 2", len(statuses))
	}

	monthly := statuses[0]
	if monthly.Spent.String() != "450" {
		t.Errorf("monthly spent: got %s, want 450", monthly.Spent)
	}
	if !monthly.Exceeded || monthly.Remaining.String() != "-50" {
		t.Errorf("monthly budget should be exceeded by 50: %+v", monthly)
	}
	if monthly.CategoryName != "Alimentari" {
		t.Errorf("category name: got %q", monthly.CategoryName)
	}

	yearly := statuses[1]
	if yearly.Spent.String() != "300" {
		t.Errorf("yearly spent: got %s, want 300", yearly.Spent)
	}
	if yearly.Exceeded || yearly.Remaining.String() != "700" {
		t.Errorf("yearly budget: %+v", yearly)
	}
}

func TestGoalProgresses(t *testing.T) {
	store, account, checking, savings := seedBalanceStore()
	store.goals = []core.SavingsGoal{
		{ID: uuid.New(), AccountID: account.ID, ContoID: &savings.ID,
			Name: "Vacanze", Target: decimal.NewFromInt(400)},
		{ID: uuid.New(), AccountID: account.ID,
			Name: "Fondo emergenza", Target: decimal.NewFromInt(5000)},
	}
	store.transactions = []core.Transaction{
		{ID: uuid.New(), AccountID: account.ID, Amount: decimal.NewFromInt(300),
			Type: core.TypeTransfer, Date: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			SourceContoID: &checking.ID, TargetContoID: &savings.ID, Description: "giroconto"},
	}

	svc := NewBudgetService(store)
	now := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	progress, err := svc.GoalProgresses(context.Background(), account.ID, now)
	if err != nil {
		t.Fatalf("GoalProgresses: %v", err)
	}
	if len(progress) != 2 {
		t.Fatalf("got %d progresses, want 2", len(progress))
	}

	// Conto-bound goal: savings holds 500 + 300 = 800 >= 400.
	if progress[0].Current.String() != "800" || !progress[0].Reached {
		t.Errorf("conto goal: %+v", progress[0])
	}
	// Account-wide goal: total is still 1500, short of 5000.
	if progress[1].Current.String() != "1500" || progress[1].Reached {
		t.Errorf("account goal: %+v", progress[1])
	}
	if progress[1].Fraction <= 0.29 || progress[1].Fraction >= 0.31 {
		t.Errorf("fraction: got %f, want 0.3", progress[1].Fraction)
	}
}
