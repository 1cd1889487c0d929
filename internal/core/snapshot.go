package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type (
	// Snapshot is the immutable, minimal projection of a Transaction
	// and the only type the balance engine consumes. It decouples the
	// engine from the persistence model: the engine never sees (or
	// mutates) stored rows.
	Snapshot struct {
		ID            uuid.UUID
		Amount        decimal.Decimal
		Type          TransactionType
		Date          time.Time
		SourceContoID *uuid.UUID
		TargetContoID *uuid.UUID
	}

	// AccountInput is the projection of an Account used for
	// historical-series computation.
	AccountInput struct {
		ID             uuid.UUID
		Name           string
		ContoIDs       []uuid.UUID
		InitialBalance decimal.Decimal
		Order          int
	}

	// ContoInput is the projection of a single Conto for
	// historical-series computation.
	ContoInput struct {
		ID             uuid.UUID
		Name           string
		InitialBalance decimal.Decimal
		Order          int
	}
)

// NewSnapshot projects a Transaction into its calculation view. An
// income's source conto, if one was recorded, is dropped here so the
// engine cannot be misled by it; the same goes for an expense's
// target.
func NewSnapshot(tx Transaction) Snapshot {
	s := Snapshot{
		ID:     tx.ID,
		Amount: tx.Amount,
		Type:   tx.Type,
		Date:   tx.Date,
	}
	switch tx.Type {
	case TypeIncome:
		s.TargetContoID = copyID(tx.TargetContoID)
	case TypeExpense:
		s.SourceContoID = copyID(tx.SourceContoID)
	case TypeTransfer:
		s.SourceContoID = copyID(tx.SourceContoID)
		s.TargetContoID = copyID(tx.TargetContoID)
	}
	return s
}

// Snapshots projects a slice of transactions in order.
func Snapshots(txs []Transaction) []Snapshot {
	out := make([]Snapshot, len(txs))
	for i, tx := range txs {
		out[i] = NewSnapshot(tx)
	}
	return out
}

// Touches reports whether the snapshot references any conto in ids.
// Callers use it to pre-filter a log down to the relevant scope.
func (s Snapshot) Touches(ids map[uuid.UUID]struct{}) bool {
	if s.SourceContoID != nil {
		if _, ok := ids[*s.SourceContoID]; ok {
			return true
		}
	}
	if s.TargetContoID != nil {
		if _, ok := ids[*s.TargetContoID]; ok {
			return true
		}
	}
	return false
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
