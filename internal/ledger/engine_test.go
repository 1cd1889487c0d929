package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/icesco/PersonalFinance-sub002/internal/core"
)

func amt(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func snap(typ core.TransactionType, amount int64, d time.Time, src, dst *uuid.UUID) core.Snapshot {
	return core.Snapshot{
		ID:            uuid.New(),
		Amount:        amt(amount),
		Type:          typ,
		Date:          d,
		SourceContoID: src,
		TargetContoID: dst,
	}
}

func ref(id uuid.UUID) *uuid.UUID { return &id }

func TestNetChange(t *testing.T) {
	inScope, outside := uuid.New(), uuid.New()
	scope := NewScope(inScope)
	d := date(2025, time.March, 1)

	cases := []struct {
		name string
		snap core.Snapshot
		want int64
	}{
		{"income into scope", snap(core.TypeIncome, 100, d, nil, ref(inScope)), 100},
		{"income elsewhere", snap(core.TypeIncome, 100, d, nil, ref(outside)), 0},
		{"expense from scope", snap(core.TypeExpense, 100, d, ref(inScope), nil), -100},
		{"expense elsewhere", snap(core.TypeExpense, 100, d, ref(outside), nil), 0},
		{"transfer leaving scope", snap(core.TypeTransfer, 100, d, ref(inScope), ref(outside)), -100},
		{"transfer entering scope", snap(core.TypeTransfer, 100, d, ref(outside), ref(inScope)), 100},
		{"internal transfer cancels", snap(core.TypeTransfer, 100, d, ref(inScope), ref(inScope)), 0},
		{"wholly external transfer", snap(core.TypeTransfer, 100, d, ref(outside), ref(outside)), 0},
		{"zero amount", snap(core.TypeIncome, 0, d, nil, ref(inScope)), 0},
		{"unknown type falls through to zero", snap("dividend", 100, d, ref(inScope), ref(inScope)), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NetChange(tc.snap, scope)
			if !got.Equal(amt(tc.want)) {
				t.Fatalf("NetChange = %s, want %d", got, tc.want)
			}
		})
	}
}

func TestInternalTransferAlwaysZero(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	scope := NewScope(a, b)
	for _, amount := range []int64{1, 300, 999999, 1 << 40} {
		s := snap(core.TypeTransfer, amount, date(2025, time.January, 1), ref(a), ref(b))
		if got := NetChange(s, scope); !got.IsZero() {
			t.Fatalf("internal transfer of %d: NetChange = %s, want 0", amount, got)
		}
	}
}

func TestTotalBalance(t *testing.T) {
	if got := TotalBalance(nil); !got.IsZero() {
		t.Fatalf("TotalBalance(nil) = %s, want 0", got)
	}
	if got := TotalBalance([]decimal.Decimal{amt(42)}); !got.Equal(amt(42)) {
		t.Fatalf("TotalBalance([42]) = %s, want 42", got)
	}
	got := TotalBalance([]decimal.Decimal{amt(100), amt(-30), amt(5)})
	if !got.Equal(amt(75)) {
		t.Fatalf("TotalBalance = %s, want 75", got)
	}
}

func TestContoBalanceScenario(t *testing.T) {
	// initial 1000, income 500, expense 100 -> 1400
	conto := uuid.New()
	snaps := []core.Snapshot{
		snap(core.TypeIncome, 500, date(2025, time.February, 1), nil, ref(conto)),
		snap(core.TypeExpense, 100, date(2025, time.February, 10), ref(conto), nil),
	}
	got := ContoBalance(amt(1000), snaps, conto, date(2025, time.March, 1))
	if !got.Equal(amt(1400)) {
		t.Fatalf("balance = %s, want 1400", got)
	}
}

func TestTransferMovesBalanceBetweenConti(t *testing.T) {
	// 300 from checking (1000) to savings (500) -> 700 and 800
	checking, savings := uuid.New(), uuid.New()
	snaps := []core.Snapshot{
		snap(core.TypeTransfer, 300, date(2025, time.February, 5), ref(checking), ref(savings)),
	}
	now := date(2025, time.March, 1)

	if got := ContoBalance(amt(1000), snaps, checking, now); !got.Equal(amt(700)) {
		t.Fatalf("checking = %s, want 700", got)
	}
	if got := ContoBalance(amt(500), snaps, savings, now); !got.Equal(amt(800)) {
		t.Fatalf("savings = %s, want 800", got)
	}
}

func TestAbsoluteChange(t *testing.T) {
	if got := AbsoluteChange(amt(1400), amt(1000)); !got.Equal(amt(400)) {
		t.Fatalf("AbsoluteChange = %s, want 400", got)
	}
}

func TestPercentageChange(t *testing.T) {
	cases := []struct {
		name           string
		current, start int64
		want           float64
	}{
		{"zero start yields zero", 1400, 0, 0},
		{"simple growth", 150, 100, 50},
		{"decline", 50, 100, -50},
		{"negative to positive reads positive", 50, -100, 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PercentageChange(amt(tc.current), amt(tc.start))
			if got != tc.want {
				t.Fatalf("PercentageChange(%d, %d) = %v, want %v", tc.current, tc.start, got, tc.want)
			}
		})
	}
}

func TestPeriodStartBalanceIncludesTransfers(t *testing.T) {
	// transfer of 400 out of scope during the period: the starting
	// balance must come out higher than the current total,
	// 4600 - (-400) = 5000
	a, elsewhere := uuid.New(), uuid.New()
	scope := NewScope(a)
	snaps := []core.Snapshot{
		snap(core.TypeTransfer, 400, date(2025, time.March, 10), ref(a), ref(elsewhere)),
	}
	got := PeriodStartBalance(amt(4600), snaps, scope, date(2025, time.March, 1), date(2025, time.March, 31))
	if !got.Equal(amt(5000)) {
		t.Fatalf("PeriodStartBalance = %s, want 5000", got)
	}
}

func TestPeriodStartBalanceIgnoresOutOfWindow(t *testing.T) {
	a := uuid.New()
	scope := NewScope(a)
	snaps := []core.Snapshot{
		snap(core.TypeExpense, 100, date(2025, time.February, 20), ref(a), nil), // before period
		snap(core.TypeExpense, 50, date(2025, time.March, 10), ref(a), nil),
		snap(core.TypeIncome, 200, date(2025, time.April, 2), nil, ref(a)), // after now
	}
	got := PeriodStartBalance(amt(1000), snaps, scope, date(2025, time.March, 1), date(2025, time.March, 31))
	if !got.Equal(amt(1050)) {
		t.Fatalf("PeriodStartBalance = %s, want 1050", got)
	}
}

// Reconciliation invariant: the sum of net changes between two dates
// equals the difference of the reconstructed boundary balances.
func TestReconciliationInvariant(t *testing.T) {
	a, b, elsewhere := uuid.New(), uuid.New(), uuid.New()
	scope := NewScope(a, b)
	snaps := []core.Snapshot{
		snap(core.TypeIncome, 1200, date(2025, time.January, 5), nil, ref(a)),
		snap(core.TypeExpense, 300, date(2025, time.January, 20), ref(a), nil),
		snap(core.TypeTransfer, 150, date(2025, time.February, 2), ref(a), ref(b)),
		snap(core.TypeTransfer, 75, date(2025, time.February, 14), ref(b), ref(elsewhere)),
		snap(core.TypeIncome, 60, date(2025, time.March, 1), nil, ref(elsewhere)),
	}
	periodStart := date(2025, time.January, 10)
	now := date(2025, time.March, 15)

	sum := decimal.Zero
	for _, s := range snaps {
		if s.Date.Before(periodStart) || s.Date.After(now) {
			continue
		}
		sum = sum.Add(NetChange(s, scope))
	}

	currentTotal := amt(4321)
	startBalance := PeriodStartBalance(currentTotal, snaps, scope, periodStart, now)
	if diff := currentTotal.Sub(startBalance); !diff.Equal(sum) {
		t.Fatalf("end-start = %s, sum of net changes = %s", diff, sum)
	}
}

func TestMonthlyTotals(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	scope := NewScope(a)
	snaps := []core.Snapshot{
		snap(core.TypeIncome, 1000, date(2025, time.March, 3), nil, ref(a)),
		snap(core.TypeIncome, 500, date(2025, time.March, 9), nil, ref(b)), // out of scope
		snap(core.TypeExpense, 250, date(2025, time.March, 15), ref(a), nil),
		snap(core.TypeTransfer, 700, date(2025, time.March, 20), ref(a), ref(b)), // transfers excluded
		snap(core.TypeExpense, 90, date(2025, time.April, 1), ref(a), nil),       // end is exclusive
	}
	income, expenses := MonthlyTotals(snaps, scope, date(2025, time.March, 1), date(2025, time.April, 1))
	if !income.Equal(amt(1000)) {
		t.Fatalf("income = %s, want 1000", income)
	}
	if !expenses.Equal(amt(250)) {
		t.Fatalf("expenses = %s, want 250", expenses)
	}
}

func TestContiChanges(t *testing.T) {
	a, b, idle := uuid.New(), uuid.New(), uuid.New()
	snaps := []core.Snapshot{
		snap(core.TypeIncome, 100, date(2025, time.March, 2), nil, ref(a)),
		snap(core.TypeTransfer, 40, date(2025, time.March, 10), ref(a), ref(b)),
		snap(core.TypeExpense, 10, date(2025, time.March, 12), ref(b), nil),
	}
	changes := ContiChanges(snaps, []uuid.UUID{a, b, idle}, date(2025, time.March, 1), date(2025, time.March, 31))

	if got := changes[a]; !got.Equal(amt(60)) {
		t.Fatalf("conto a change = %s, want 60", got)
	}
	if got := changes[b]; !got.Equal(amt(30)) {
		t.Fatalf("conto b change = %s, want 30", got)
	}
	if got := changes[idle]; !got.IsZero() {
		t.Fatalf("idle conto change = %s, want 0", got)
	}
}
