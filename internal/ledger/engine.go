// Package ledger is the balance calculation engine: pure, stateless
// functions that reconstruct balances, deltas and time series from an
// append-only log of transaction snapshots plus stored initial
// balances.
//
// Every function is total over well-typed inputs. Malformed input
// (inverted ranges, empty collections, unmatched conto ids) produces a
// documented edge-case value, never an error or panic. Nothing here
// performs I/O or holds state, so concurrent callers need no
// synchronization.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/icesco/PersonalFinance-sub002/internal/core"
)

// Scope is the set of conto ids a transaction's balance effect is
// evaluated against.
type Scope map[uuid.UUID]struct{}

// NewScope builds a scope from conto ids.
func NewScope(ids ...uuid.UUID) Scope {
	s := make(Scope, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether a nullable conto reference is in scope.
func (s Scope) Contains(id *uuid.UUID) bool {
	if id == nil {
		return false
	}
	_, ok := s[*id]
	return ok
}

// NetChange is the signed balance effect of one snapshot on the
// aggregate of the in-scope conti.
//
// Income counts when its target is in scope, expense when its source
// is. A transfer between two in-scope conti nets to zero; a transfer
// with exactly one leg in scope has directional effect; a wholly
// external transfer contributes nothing. The type switch is exhaustive
// over the closed TransactionType set; anything else yields zero.
func NetChange(snap core.Snapshot, scope Scope) decimal.Decimal {
	switch snap.Type {
	case core.TypeIncome:
		if scope.Contains(snap.TargetContoID) {
			return snap.Amount
		}
	case core.TypeExpense:
		if scope.Contains(snap.SourceContoID) {
			return snap.Amount.Neg()
		}
	case core.TypeTransfer:
		in := scope.Contains(snap.TargetContoID)
		out := scope.Contains(snap.SourceContoID)
		switch {
		case in && out: // internal, cancels
			return decimal.Zero
		case out:
			return snap.Amount.Neg()
		case in:
			return snap.Amount
		}
	}
	return decimal.Zero
}

// TotalBalance sums per-conto balances. Empty input yields zero.
func TotalBalance(balances []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b)
	}
	return total
}

// ContoBalance derives a conto's current balance: initial balance plus
// the net effect of every snapshot up to and including now, evaluated
// against the singleton scope of that conto.
func ContoBalance(initial decimal.Decimal, snaps []core.Snapshot, contoID uuid.UUID, now time.Time) decimal.Decimal {
	scope := NewScope(contoID)
	balance := initial
	for _, snap := range snaps {
		if snap.Date.After(now) {
			continue
		}
		balance = balance.Add(NetChange(snap, scope))
	}
	return balance
}

// AbsoluteChange is current minus start.
func AbsoluteChange(current, start decimal.Decimal) decimal.Decimal {
	return current.Sub(start)
}

// PercentageChange is the period delta as a percentage of the starting
// balance, for display only. A zero start yields zero. The divisor is
// |start| so a negative-to-positive transition reads as a positive
// change instead of a sign-flipped artifact.
func PercentageChange(current, start decimal.Decimal) float64 {
	if start.IsZero() {
		return 0
	}
	change, _ := current.Sub(start).Div(start.Abs()).Mul(decimal.NewFromInt(100)).Float64()
	return change
}

// PeriodStartBalance reconstructs the aggregate balance at periodStart
// by walking backward from the current total: every snapshot dated in
// [periodStart, now] has its net change subtracted. Transfers go
// through NetChange like everything else; a transfer out of scope
// during the period must raise the reconstructed starting balance.
func PeriodStartBalance(currentTotal decimal.Decimal, snaps []core.Snapshot, scope Scope, periodStart, now time.Time) decimal.Decimal {
	balance := currentTotal
	for _, snap := range snaps {
		if snap.Date.Before(periodStart) || snap.Date.After(now) {
			continue
		}
		balance = balance.Sub(NetChange(snap, scope))
	}
	return balance
}

// MonthlyTotals sums income and expense amounts for snapshots dated in
// [start, end). Transfers are excluded entirely: they move money
// between conti without creating or destroying it.
func MonthlyTotals(snaps []core.Snapshot, scope Scope, start, end time.Time) (income, expenses decimal.Decimal) {
	income, expenses = decimal.Zero, decimal.Zero
	for _, snap := range snaps {
		if snap.Date.Before(start) || !snap.Date.Before(end) {
			continue
		}
		switch snap.Type {
		case core.TypeIncome:
			if scope.Contains(snap.TargetContoID) {
				income = income.Add(snap.Amount)
			}
		case core.TypeExpense:
			if scope.Contains(snap.SourceContoID) {
				expenses = expenses.Add(snap.Amount)
			}
		}
	}
	return income, expenses
}

// ContiChanges maps each conto id to its individual net change over
// [start, end], each conto evaluated against the singleton scope
// containing only itself. Conti with no matching snapshots map to
// zero.
func ContiChanges(snaps []core.Snapshot, contoIDs []uuid.UUID, start, end time.Time) map[uuid.UUID]decimal.Decimal {
	changes := make(map[uuid.UUID]decimal.Decimal, len(contoIDs))
	for _, id := range contoIDs {
		scope := NewScope(id)
		change := decimal.Zero
		for _, snap := range snaps {
			if snap.Date.Before(start) || snap.Date.After(end) {
				continue
			}
			change = change.Add(NetChange(snap, scope))
		}
		changes[id] = change
	}
	return changes
}
