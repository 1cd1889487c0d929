package core

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestNewSnapshotDropsIrrelevantLegs(t *testing.T) {
	src, dst := uuid.New(), uuid.New()
	date := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	// an income recorded with a stray source conto must not expose it
	income := Transaction{
		ID:            uuid.New(),
		Amount:        decimal.NewFromInt(500),
		Type:          TypeIncome,
		Date:          date,
		SourceContoID: &src,
		TargetContoID: &dst,
		Description:   "salary",
	}
	snap := NewSnapshot(income)
	if snap.SourceContoID != nil {
		t.Fatal("income snapshot must drop the source conto")
	}
	if snap.TargetContoID == nil || *snap.TargetContoID != dst {
		t.Fatal("income snapshot must keep the target conto")
	}

	expense := income
	expense.Type = TypeExpense
	snap = NewSnapshot(expense)
	if snap.TargetContoID != nil {
		t.Fatal("expense snapshot must drop the target conto")
	}
	if snap.SourceContoID == nil || *snap.SourceContoID != src {
		t.Fatal("expense snapshot must keep the source conto")
	}

	transfer := income
	transfer.Type = TypeTransfer
	snap = NewSnapshot(transfer)
	if snap.SourceContoID == nil || snap.TargetContoID == nil {
		t.Fatal("transfer snapshot must keep both legs")
	}
}

func TestSnapshotIsDetachedCopy(t *testing.T) {
	src := uuid.New()
	tx := Transaction{
		ID:            uuid.New(),
		Amount:        decimal.NewFromInt(10),
		Type:          TypeExpense,
		Date:          time.Now(),
		SourceContoID: &src,
	}
	snap := NewSnapshot(tx)

	other := uuid.New()
	*tx.SourceContoID = other
	if *snap.SourceContoID == other {
		t.Fatal("snapshot must not alias the transaction's conto reference")
	}
}

func TestSnapshotTouches(t *testing.T) {
	src, dst, elsewhere := uuid.New(), uuid.New(), uuid.New()
	tx := Transaction{
		ID:            uuid.New(),
		Amount:        decimal.NewFromInt(10),
		Type:          TypeTransfer,
		Date:          time.Now(),
		SourceContoID: &src,
		TargetContoID: &dst,
	}
	snap := NewSnapshot(tx)

	in := map[uuid.UUID]struct{}{src: {}}
	if !snap.Touches(in) {
		t.Fatal("expected source leg to match")
	}
	in = map[uuid.UUID]struct{}{dst: {}}
	if !snap.Touches(in) {
		t.Fatal("expected target leg to match")
	}
	in = map[uuid.UUID]struct{}{elsewhere: {}}
	if snap.Touches(in) {
		t.Fatal("unrelated scope must not match")
	}
}
