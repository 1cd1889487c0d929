package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/icesco/PersonalFinance-sub002/internal/amqp"
	"github.com/icesco/PersonalFinance-sub002/internal/core"
	"github.com/icesco/PersonalFinance-sub002/internal/storage"
)

// fakeStore implements the service store interfaces in memory.
type fakeStore struct {
	accounts     []core.Account
	conti        []core.Conto
	transactions []core.Transaction
	links        []core.TransferLink
	budgets      []core.Budget
	categories   []core.Category
	goals        []core.SavingsGoal

	peerErr error // forced GetTransferPeer failure
}

func (f *fakeStore) CreateTransaction(_ context.Context, tx core.Transaction) error {
	f.transactions = append(f.transactions, tx)
	return nil
}

func (f *fakeStore) GetTransaction(_ context.Context, id uuid.UUID) (core.Transaction, error) {
	for _, tx := range f.transactions {
		if tx.ID == id {
			return tx, nil
		}
	}
	return core.Transaction{}, storage.ErrNotFound
}

func (f *fakeStore) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	for i := range f.transactions {
		if f.transactions[i].ID == tx.ID {
			f.transactions[i] = tx
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeStore) DeleteTransaction(_ context.Context, id uuid.UUID) error {
	for i := range f.transactions {
		if f.transactions[i].ID == id {
			f.transactions = append(f.transactions[:i], f.transactions[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeStore) ListTransactions(_ context.Context, accountID uuid.UUID) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, tx := range f.transactions {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeStore) ListRecurringTransactions(_ context.Context, accountID uuid.UUID) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, tx := range f.transactions {
		if tx.AccountID == accountID && tx.IsRecurring {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateTransferLink(_ context.Context, link core.TransferLink) error {
	f.links = append(f.links, link)
	return nil
}

func (f *fakeStore) GetTransferPeer(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	if f.peerErr != nil {
		return uuid.Nil, f.peerErr
	}
	for _, l := range f.links {
		if l.OutgoingID == id {
			return l.IncomingID, nil
		}
		if l.IncomingID == id {
			return l.OutgoingID, nil
		}
	}
	return uuid.Nil, storage.ErrNotFound
}

func (f *fakeStore) GetAccount(_ context.Context, id uuid.UUID) (core.Account, error) {
	for _, a := range f.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return core.Account{}, storage.ErrNotFound
}

func (f *fakeStore) ListAccounts(context.Context) ([]core.Account, error) {
	return f.accounts, nil
}

func (f *fakeStore) ListConti(_ context.Context, accountID uuid.UUID) ([]core.Conto, error) {
	var out []core.Conto
	for _, c := range f.conti {
		if c.AccountID == accountID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListSnapshots(ctx context.Context, accountID uuid.UUID) ([]core.Snapshot, error) {
	txs, err := f.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return core.Snapshots(txs), nil
}

func (f *fakeStore) ListBudgets(_ context.Context, accountID uuid.UUID) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range f.budgets {
		if b.AccountID == accountID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) ListCategories(_ context.Context, accountID uuid.UUID) ([]core.Category, error) {
	var out []core.Category
	for _, c := range f.categories {
		if c.AccountID == accountID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListSavingsGoals(_ context.Context, accountID uuid.UUID) ([]core.SavingsGoal, error) {
	var out []core.SavingsGoal
	for _, g := range f.goals {
		if g.AccountID == accountID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) SumExpensesByCategory(_ context.Context, accountID uuid.UUID, from, to time.Time) (map[uuid.UUID]decimal.Decimal, error) {
	totals := make(map[uuid.UUID]decimal.Decimal)
	for _, tx := range f.transactions {
		if tx.AccountID != accountID || tx.Type != core.TypeExpense || tx.CategoryID == nil {
			continue
		}
		if tx.Date.Before(from) || !tx.Date.Before(to) {
			continue
		}
		totals[*tx.CategoryID] = totals[*tx.CategoryID].Add(tx.Amount)
	}
	return totals, nil
}

// fakePublisher records published messages, optionally failing.
type fakePublisher struct {
	published []*amqp.TransactionSyncMessage
	fail      bool
}

func (p *fakePublisher) PublishTransactionSync(_ context.Context, msg *amqp.TransactionSyncMessage) error {
	if p.fail {
		return errors.New("connection refused")
	}
	p.published = append(p.published, msg)
	return nil
}
