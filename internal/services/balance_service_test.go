package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/icesco/PersonalFinance-sub002/internal/core"
	"github.com/icesco/PersonalFinance-sub002/internal/ledger"
)

func seedBalanceStore() (*fakeStore, core.Account, core.Conto, core.Conto) {
	account := core.Account{ID: uuid.New(), Name: "Famiglia", Currency: "EUR", Active: true}
	checking := core.Conto{
		ID: uuid.New(), AccountID: account.ID, Name: "Conto corrente",
		Type: core.ContoChecking, InitialBalance: decimal.NewFromInt(1000), Active: true,
	}
	savings := core.Conto{
		ID: uuid.New(), AccountID: account.ID, Name: "Risparmi",
		Type: core.ContoSavings, InitialBalance: decimal.NewFromInt(500), Active: true,
	}
	return &fakeStore{
		accounts: []core.Account{account},
		conti:    []core.Conto{checking, savings},
	}, account, checking, savings
}

func TestDashboardTotals(t *testing.T) {
	store, account, checking, savings := seedBalanceStore()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	monthStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// +500 income, -100 expense, 300 internal transfer in March.
	store.transactions = []core.Transaction{
		{ID: uuid.New(), AccountID: account.ID, Amount: decimal.NewFromInt(500),
			Type: core.TypeIncome, Date: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
			TargetContoID: &checking.ID, Description: "stipendio"},
		{ID: uuid.New(), AccountID: account.ID, Amount: decimal.NewFromInt(100),
			Type: core.TypeExpense, Date: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			SourceContoID: &checking.ID, Description: "spesa"},
		{ID: uuid.New(), AccountID: account.ID, Amount: decimal.NewFromInt(300),
			Type: core.TypeTransfer, Date: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			SourceContoID: &checking.ID, TargetContoID: &savings.ID, Description: "giroconto"},
	}

	svc := NewBalanceService(store)
	d, err := svc.Dashboard(context.Background(), account.ID, monthStart, now)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}

	// 1500 initial + 500 - 100; the internal transfer nets to zero.
	if d.Total.String() != "1900" {
		t.Errorf("total: got %s, want 1900", d.Total)
	}
	if d.PeriodStart.String() != "1500" {
		t.Errorf("period start: got %s, want 1500", d.PeriodStart)
	}
	if d.AbsoluteChange.String() != "400" {
		t.Errorf("absolute change: got %s, want 400", d.AbsoluteChange)
	}
	if d.Income.String() != "500" || d.Expenses.String() != "100" {
		t.Errorf("income/expenses: got %s/%s", d.Income, d.Expenses)
	}

	if len(d.ContoBalances) != 2 {
		t.Fatalf("got %d conto balances, want 2", len(d.ContoBalances))
	}
	// checking: 1000 +500 -100 -300 = 1100; savings: 500 +300 = 800
	if d.ContoBalances[0].Balance.String() != "1100" {
		t.Errorf("checking balance: got %s, want 1100", d.ContoBalances[0].Balance)
	}
	if d.ContoBalances[1].Balance.String() != "800" {
		t.Errorf("savings balance: got %s, want 800", d.ContoBalances[1].Balance)
	}
}

func TestDashboardIgnoresInactiveConti(t *testing.T) {
	store, account, _, _ := seedBalanceStore()
	store.conti[1].Active = false

	svc := NewBalanceService(store)
	now := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	d, err := svc.Dashboard(context.Background(), account.ID,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), now)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.Total.String() != "1000" {
		t.Errorf("total: got %s, want 1000 (inactive conto excluded)", d.Total)
	}
	if len(d.ContoBalances) != 1 {
		t.Errorf("got %d conto balances, want 1", len(d.ContoBalances))
	}
}

func TestHistorySplitsPastAndFuture(t *testing.T) {
	store, account, checking, _ := seedBalanceStore()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	store.transactions = []core.Transaction{
		{ID: uuid.New(), AccountID: account.ID, Amount: decimal.NewFromInt(200),
			Type: core.TypeIncome, Date: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
			TargetContoID: &checking.ID, Description: "entrata"},
	}

	svc := NewBalanceService(store)
	h, err := svc.History(context.Background(), account.ID, ledger.PeriodOneMonth, now, now)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(h.Past) == 0 {
		t.Fatal("expected past points")
	}
	if len(h.Future) == 0 {
		t.Error("one-month view of the current month should project a future segment")
	}
	for _, p := range h.Past {
		if p.Date.After(now) {
			t.Errorf("past point after now: %v", p.Date)
		}
	}
	if h.UpperBound.LessThanOrEqual(h.LowerBound) {
		t.Errorf("y domain inverted: [%s, %s]", h.LowerBound, h.UpperBound)
	}
}

func TestCompareAccountsSeries(t *testing.T) {
	store, account, checking, _ := seedBalanceStore()
	second := core.Account{ID: uuid.New(), Name: "Personale", Currency: "EUR", Active: true}
	store.accounts = append(store.accounts, second)
	store.conti = append(store.conti, core.Conto{
		ID: uuid.New(), AccountID: second.ID, Name: "Conto personale",
		Type: core.ContoChecking, InitialBalance: decimal.NewFromInt(200), Active: true,
	})
	store.transactions = []core.Transaction{
		{ID: uuid.New(), AccountID: account.ID, Amount: decimal.NewFromInt(300),
			Type: core.TypeIncome, Date: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
			TargetContoID: &checking.ID, Description: "entrata"},
	}

	svc := NewBalanceService(store)
	now := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	series, err := svc.CompareAccounts(context.Background(), 3, now)
	if err != nil {
		t.Fatalf("CompareAccounts: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("got %d series, want 2", len(series))
	}
	for _, s := range series {
		if len(s.Points) != 4 {
			t.Errorf("series %q: got %d points, want 4", s.Name, len(s.Points))
		}
	}
	// First account's latest point: 1500 initial + 300 income.
	last := series[0].Points[len(series[0].Points)-1]
	if last.Balance.String() != "1800" {
		t.Errorf("latest balance: got %s, want 1800", last.Balance)
	}
}
