package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/icesco/PersonalFinance-sub002/internal/core"
	"github.com/icesco/PersonalFinance-sub002/internal/ledger"
)

// BalanceStore is the read surface the balance service needs.
type BalanceStore interface {
	GetAccount(ctx context.Context, id uuid.UUID) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	ListConti(ctx context.Context, accountID uuid.UUID) ([]core.Conto, error)
	ListSnapshots(ctx context.Context, accountID uuid.UUID) ([]core.Snapshot, error)
}

type BalanceService struct {
	store BalanceStore
}

func NewBalanceService(store BalanceStore) *BalanceService {
	return &BalanceService{store: store}
}

// Dashboard bundles the headline figures for one account over one
// observation period.
type Dashboard struct {
	AccountID        uuid.UUID
	Total            decimal.Decimal
	PeriodStart      decimal.Decimal
	AbsoluteChange   decimal.Decimal
	PercentageChange float64
	Income           decimal.Decimal
	Expenses         decimal.Decimal
	ContoBalances    []ContoBalance
}

type ContoBalance struct {
	Conto   core.Conto
	Balance decimal.Decimal
	Change  decimal.Decimal
}

// Dashboard computes the account's totals as of now over
// [periodStart, now].
func (s *BalanceService) Dashboard(ctx context.Context, accountID uuid.UUID, periodStart, now time.Time) (Dashboard, error) {
	conti, err := s.store.ListConti(ctx, accountID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list conti: %w", err)
	}
	snaps, err := s.store.ListSnapshots(ctx, accountID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list snapshots: %w", err)
	}

	contoIDs := make([]uuid.UUID, 0, len(conti))
	balances := make([]decimal.Decimal, 0, len(conti))
	for _, c := range conti {
		if !c.Active {
			continue
		}
		contoIDs = append(contoIDs, c.ID)
		balances = append(balances, ledger.ContoBalance(c.InitialBalance, snaps, c.ID, now))
	}

	scope := ledger.NewScope(contoIDs...)
	total := ledger.TotalBalance(balances)
	start := ledger.PeriodStartBalance(total, snaps, scope, periodStart, now)
	income, expenses := ledger.MonthlyTotals(snaps, scope, periodStart, now)
	changes := ledger.ContiChanges(snaps, contoIDs, periodStart, now)

	d := Dashboard{
		AccountID:        accountID,
		Total:            total,
		PeriodStart:      start,
		AbsoluteChange:   ledger.AbsoluteChange(total, start),
		PercentageChange: ledger.PercentageChange(total, start),
		Income:           income,
		Expenses:         expenses,
	}
	idx := 0
	for _, c := range conti {
		if !c.Active {
			continue
		}
		d.ContoBalances = append(d.ContoBalances, ContoBalance{
			Conto:   c,
			Balance: balances[idx],
			Change:  changes[c.ID],
		})
		idx++
	}
	return d, nil
}

// History returns the chart-ready balance series of one account over
// the period, split into past and projected segments, plus the y-axis
// domain.
type History struct {
	Past       []ledger.BalancePoint
	Future     []ledger.BalancePoint
	LowerBound decimal.Decimal
	UpperBound decimal.Decimal
}

func (s *BalanceService) History(ctx context.Context, accountID uuid.UUID, period ledger.Period, selectedMonth, now time.Time) (History, error) {
	conti, err := s.store.ListConti(ctx, accountID)
	if err != nil {
		return History{}, fmt.Errorf("list conti: %w", err)
	}
	snaps, err := s.store.ListSnapshots(ctx, accountID)
	if err != nil {
		return History{}, fmt.Errorf("list snapshots: %w", err)
	}

	initial := decimal.Zero
	ids := make([]uuid.UUID, 0, len(conti))
	for _, c := range conti {
		if !c.Active {
			continue
		}
		initial = initial.Add(c.InitialBalance)
		ids = append(ids, c.ID)
	}

	periodEnd := endOfMonth(selectedMonth)
	start := monthStartOf(selectedMonth).AddDate(0, -(period.Months() - 1), 0)

	points := ledger.BalanceHistory(snaps, ledger.NewScope(ids...), initial, start, periodEnd)
	past, future := ledger.SplitBalanceHistory(points, now, period, selectedMonth)
	lower, upper := ledger.ChartYDomain(points)

	return History{Past: past, Future: future, LowerBound: lower, UpperBound: upper}, nil
}

// CompareAccounts builds month-end balance series for every account,
// one fetch per account fanned out concurrently.
func (s *BalanceService) CompareAccounts(ctx context.Context, months int, now time.Time) ([]ledger.EntitySeries, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	inputs := make([]core.AccountInput, len(accounts))
	allSnaps := make([][]core.Snapshot, len(accounts))

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range accounts {
		g.Go(func() error {
			conti, err := s.store.ListConti(gctx, a.ID)
			if err != nil {
				return fmt.Errorf("list conti for %s: %w", a.ID, err)
			}
			in := core.AccountInput{ID: a.ID, Name: a.Name, Order: i}
			for _, c := range conti {
				if !c.Active {
					continue
				}
				in.ContoIDs = append(in.ContoIDs, c.ID)
				in.InitialBalance = in.InitialBalance.Add(c.InitialBalance)
			}
			snaps, err := s.store.ListSnapshots(gctx, a.ID)
			if err != nil {
				return fmt.Errorf("list snapshots for %s: %w", a.ID, err)
			}
			inputs[i] = in
			allSnaps[i] = snaps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []core.Snapshot
	for _, snaps := range allSnaps {
		merged = append(merged, snaps...)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })

	return ledger.MultiAccountBalanceHistory(inputs, merged, months, now), nil
}

// CompareConti builds month-end balance series for the account's
// conti, skipping conti with no activity in the window.
func (s *BalanceService) CompareConti(ctx context.Context, accountID uuid.UUID, months int, now time.Time) ([]ledger.EntitySeries, error) {
	conti, err := s.store.ListConti(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list conti: %w", err)
	}
	snaps, err := s.store.ListSnapshots(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	inputs := make([]core.ContoInput, 0, len(conti))
	for i, c := range conti {
		if !c.Active {
			continue
		}
		inputs = append(inputs, core.ContoInput{
			ID: c.ID, Name: c.Name, InitialBalance: c.InitialBalance, Order: i,
		})
	}
	return ledger.MultiContoBalanceHistory(inputs, snaps, months, now), nil
}

func monthStartOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func endOfMonth(t time.Time) time.Time {
	return monthStartOf(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}
