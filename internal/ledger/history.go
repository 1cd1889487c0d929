package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/icesco/PersonalFinance-sub002/internal/core"
)

type (
	// BalancePoint is one (date, balance) sample of a series.
	BalancePoint struct {
		Date    time.Time
		Balance decimal.Decimal
	}

	// EntitySeries is one per-account or per-conto history line.
	EntitySeries struct {
		ID     uuid.UUID
		Name   string
		Order  int
		Points []BalancePoint
	}

	// Period is the chart granularity selected by the caller.
	Period int
)

const (
	PeriodOneMonth Period = iota
	PeriodThreeMonths
	PeriodSixMonths
	PeriodOneYear
)

// Months returns the number of calendar months the period spans.
func (p Period) Months() int {
	switch p {
	case PeriodThreeMonths:
		return 3
	case PeriodSixMonths:
		return 6
	case PeriodOneYear:
		return 12
	default:
		return 1
	}
}

// BalanceHistory builds the chronological series of balances for one
// scope over [periodStart, periodEnd]:
//
//  1. the balance just before periodStart (initial balance plus every
//     snapshot dated strictly before it) becomes the starting point,
//  2. in-range snapshots collapse per calendar day into one point
//     carrying the running balance after that day,
//  3. the end of each calendar month inside the range gets an anchor
//     point at the last known balance, so sparse months still chart.
//
// An inverted range yields an empty series; with no snapshots at all
// the result is the single starting point.
func BalanceHistory(snaps []core.Snapshot, scope Scope, initial decimal.Decimal, periodStart, periodEnd time.Time) []BalancePoint {
	if periodStart.After(periodEnd) {
		return nil
	}

	balance := initial
	var inRange []core.Snapshot
	for _, snap := range snaps {
		switch {
		case snap.Date.Before(periodStart):
			balance = balance.Add(NetChange(snap, scope))
		case !snap.Date.After(periodEnd):
			inRange = append(inRange, snap)
		}
	}

	points := []BalancePoint{{Date: periodStart, Balance: balance}}

	sort.SliceStable(inRange, func(i, j int) bool { return inRange[i].Date.Before(inRange[j].Date) })

	var day time.Time
	for _, snap := range inRange {
		d := dateOnly(snap.Date)
		balance = balance.Add(NetChange(snap, scope))
		if d.Equal(day) {
			// same-day transactions collapse into one net point
			points[len(points)-1].Balance = balance
			continue
		}
		day = d
		points = append(points, BalancePoint{Date: d, Balance: balance})
	}

	points = appendMonthEndAnchors(points, periodStart, periodEnd)
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points
}

// appendMonthEndAnchors adds a point at the last day of every calendar
// month inside the range, carrying the last balance known at that
// date. Dates that already have a point are left alone.
func appendMonthEndAnchors(points []BalancePoint, periodStart, periodEnd time.Time) []BalancePoint {
	existing := make(map[time.Time]struct{}, len(points))
	for _, p := range points {
		existing[dateOnly(p.Date)] = struct{}{}
	}

	cursor := time.Date(periodStart.Year(), periodStart.Month()+1, 0, 0, 0, 0, 0, periodStart.Location())
	for !cursor.After(dateOnly(periodEnd)) {
		if cursor.Before(dateOnly(periodStart)) {
			cursor = endOfNextMonth(cursor)
			continue
		}
		if _, dup := existing[cursor]; !dup {
			points = append(points, BalancePoint{Date: cursor, Balance: balanceAt(points, cursor)})
		}
		cursor = endOfNextMonth(cursor)
	}
	return points
}

// balanceAt is the last known running balance at the given date: the
// balance of the latest-dated point not after it. The input need not
// be sorted.
func balanceAt(points []BalancePoint, at time.Time) decimal.Decimal {
	balance := decimal.Zero
	if len(points) > 0 {
		balance = points[0].Balance
	}
	var best time.Time
	for _, p := range points {
		if p.Date.After(at) || p.Date.Before(best) {
			continue
		}
		best = p.Date
		balance = p.Balance
	}
	return balance
}

// SplitBalanceHistory partitions a series into past (before tomorrow)
// and future. A future segment is only produced at one-month
// granularity: coarser charts show history only. When future points
// exist they are prefixed with a connector carrying today's balance;
// when none exist a flat two-point projection from today to the end of
// the selected month keeps the chart continuous.
func SplitBalanceHistory(points []BalancePoint, today time.Time, period Period, selectedMonth time.Time) (past, future []BalancePoint) {
	tomorrow := dateOnly(today).AddDate(0, 0, 1)
	for _, p := range points {
		if p.Date.Before(tomorrow) {
			past = append(past, p)
		} else {
			future = append(future, p)
		}
	}

	if period != PeriodOneMonth {
		return past, nil
	}

	current := decimal.Zero
	if len(past) > 0 {
		current = past[len(past)-1].Balance
	}

	if len(future) > 0 {
		connector := BalancePoint{Date: dateOnly(today), Balance: current}
		return past, append([]BalancePoint{connector}, future...)
	}

	monthEnd := time.Date(selectedMonth.Year(), selectedMonth.Month()+1, 0, 0, 0, 0, 0, selectedMonth.Location())
	return past, []BalancePoint{
		{Date: dateOnly(today), Balance: current},
		{Date: monthEnd, Balance: current},
	}
}

// MultiAccountBalanceHistory computes one series per account for the
// trailing months window, walking backward from the balance as of now:
// each earlier month's start balance is the following month's start
// balance minus that month's net change. Points are emitted oldest
// first, one per month start, plus the current balance at now.
func MultiAccountBalanceHistory(accounts []core.AccountInput, snaps []core.Snapshot, months int, now time.Time) []EntitySeries {
	series := make([]EntitySeries, 0, len(accounts))
	for _, acc := range accounts {
		scope := NewScope(acc.ContoIDs...)
		series = append(series, EntitySeries{
			ID:     acc.ID,
			Name:   acc.Name,
			Order:  acc.Order,
			Points: backwardSeries(snaps, scope, acc.InitialBalance, months, now),
		})
	}
	return series
}

// MultiContoBalanceHistory is the per-conto variant. Conti with no
// activity at all across the window produce no series.
func MultiContoBalanceHistory(conti []core.ContoInput, snaps []core.Snapshot, months int, now time.Time) []EntitySeries {
	windowStart := monthStart(now).AddDate(0, -(months - 1), 0)
	series := make([]EntitySeries, 0, len(conti))
	for _, conto := range conti {
		scope := NewScope(conto.ID)
		if !hasActivity(snaps, scope, windowStart, now) {
			continue
		}
		series = append(series, EntitySeries{
			ID:     conto.ID,
			Name:   conto.Name,
			Order:  conto.Order,
			Points: backwardSeries(snaps, scope, conto.InitialBalance, months, now),
		})
	}
	return series
}

// backwardSeries derives month-start balances for the trailing months
// window from the balance as of now.
func backwardSeries(snaps []core.Snapshot, scope Scope, initial decimal.Decimal, months int, now time.Time) []BalancePoint {
	if months < 1 {
		months = 1
	}

	current := initial
	for _, snap := range snaps {
		if snap.Date.After(now) {
			continue
		}
		current = current.Add(NetChange(snap, scope))
	}

	starts := make([]time.Time, months)
	for i := range starts {
		starts[i] = monthStart(now).AddDate(0, -(months - 1 - i), 0)
	}

	points := make([]BalancePoint, months+1)
	points[months] = BalancePoint{Date: now, Balance: current}

	balance := current
	for i := months - 1; i >= 0; i-- {
		from := starts[i]
		var change decimal.Decimal
		if i == months-1 {
			// The last window closes at now inclusive, the same bound
			// current was accumulated with; a half-open window here
			// would leave a snapshot dated exactly now in every
			// month-start point.
			change = netChangeThrough(snaps, scope, from, now)
		} else {
			change = netChangeBetween(snaps, scope, from, starts[i+1])
		}
		balance = balance.Sub(change)
		points[i] = BalancePoint{Date: from, Balance: balance}
	}
	return points
}

// netChangeBetween sums net changes for snapshots in [from, to).
func netChangeBetween(snaps []core.Snapshot, scope Scope, from, to time.Time) decimal.Decimal {
	change := decimal.Zero
	for _, snap := range snaps {
		if snap.Date.Before(from) || !snap.Date.Before(to) {
			continue
		}
		change = change.Add(NetChange(snap, scope))
	}
	return change
}

// netChangeThrough sums net changes for snapshots in [from, to].
func netChangeThrough(snaps []core.Snapshot, scope Scope, from, to time.Time) decimal.Decimal {
	change := decimal.Zero
	for _, snap := range snaps {
		if snap.Date.Before(from) || snap.Date.After(to) {
			continue
		}
		change = change.Add(NetChange(snap, scope))
	}
	return change
}

func hasActivity(snaps []core.Snapshot, scope Scope, from, to time.Time) bool {
	for _, snap := range snaps {
		if snap.Date.Before(from) || snap.Date.After(to) {
			continue
		}
		if scope.Contains(snap.SourceContoID) || scope.Contains(snap.TargetContoID) {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func endOfNextMonth(monthEnd time.Time) time.Time {
	return time.Date(monthEnd.Year(), monthEnd.Month()+2, 0, 0, 0, 0, 0, monthEnd.Location())
}
