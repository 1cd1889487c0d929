package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/icesco/PersonalFinance-sub002/internal/amqp"
	"github.com/icesco/PersonalFinance-sub002/internal/core"
	"github.com/icesco/PersonalFinance-sub002/internal/sheets"
	"github.com/icesco/PersonalFinance-sub002/internal/sheets/memory"
	"github.com/icesco/PersonalFinance-sub002/internal/storage"
)

type fakeWorkerStore struct {
	transactions map[uuid.UUID]core.Transaction
	conti        map[uuid.UUID]core.Conto
	categories   map[uuid.UUID]core.Category
	status       map[uuid.UUID]string
}

func newFakeWorkerStore() *fakeWorkerStore {
	return &fakeWorkerStore{
		transactions: make(map[uuid.UUID]core.Transaction),
		conti:        make(map[uuid.UUID]core.Conto),
		categories:   make(map[uuid.UUID]core.Category),
		status:       make(map[uuid.UUID]string),
	}
}

func (f *fakeWorkerStore) GetTransaction(_ context.Context, id uuid.UUID) (core.Transaction, error) {
	tx, ok := f.transactions[id]
	if !ok {
		return core.Transaction{}, storage.ErrNotFound
	}
	return tx, nil
}

func (f *fakeWorkerStore) GetConto(_ context.Context, id uuid.UUID) (core.Conto, error) {
	c, ok := f.conti[id]
	if !ok {
		return core.Conto{}, storage.ErrNotFound
	}
	return c, nil
}

func (f *fakeWorkerStore) GetCategory(_ context.Context, id uuid.UUID) (core.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return core.Category{}, storage.ErrNotFound
	}
	return c, nil
}

func (f *fakeWorkerStore) GetPendingSync(_ context.Context, limit int) ([]core.Transaction, error) {
	var out []core.Transaction
	for id, s := range f.status {
		if s == storage.SyncPending && len(out) < limit {
			out = append(out, f.transactions[id])
		}
	}
	return out, nil
}

func (f *fakeWorkerStore) MarkSynced(_ context.Context, id uuid.UUID) error {
	f.status[id] = storage.SyncSynced
	return nil
}

func (f *fakeWorkerStore) MarkSyncError(_ context.Context, id uuid.UUID) error {
	f.status[id] = storage.SyncError
	return nil
}

func (f *fakeWorkerStore) add(tx core.Transaction) {
	f.transactions[tx.ID] = tx
	f.status[tx.ID] = storage.SyncPending
}

type failingWriter struct{}

func (failingWriter) Upsert(context.Context, sheets.Row) (string, error) {
	return "", errors.New("quota exceeded")
}

func seedWorker(t *testing.T) (*fakeWorkerStore, *memory.Store, core.Transaction) {
	t.Helper()
	store := newFakeWorkerStore()

	conto := core.Conto{ID: uuid.New(), Name: "Conto corrente", Type: core.ContoChecking}
	cat := core.Category{ID: uuid.New(), Name: "Alimentari"}
	store.conti[conto.ID] = conto
	store.categories[cat.ID] = cat

	tx := core.Transaction{
		ID:            uuid.New(),
		AccountID:     uuid.New(),
		Amount:        decimal.RequireFromString("42.50"),
		Type:          core.TypeExpense,
		Date:          time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		SourceContoID: &conto.ID,
		CategoryID:    &cat.ID,
		Description:   "Supermercato",
	}
	store.add(tx)
	return store, memory.New(), tx
}

func TestHandleMessageExportsRow(t *testing.T) {
	store, sheet, tx := seedWorker(t)
	w := NewSyncWorker(store, sheet, sheet, 10)

	err := w.HandleMessage(context.Background(), amqp.NewTransactionSyncMessage(tx.ID, 1))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	rows := sheet.Rows()
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.ID != tx.ID.String() {
		t.Errorf("row ID: got %q", row.ID)
	}
	if row.Amount != "42.50" {
		t.Errorf("amount: got %q, want 42.50", row.Amount)
	}
	if row.SourceConto != "Conto corrente" || row.Category != "Alimentari" {
		t.Errorf("names not resolved: %+v", row)
	}
	if store.status[tx.ID] != storage.SyncSynced {
		t.Errorf("status: got %q, want synced", store.status[tx.ID])
	}
}

func TestHandleMessageMissingTransaction(t *testing.T) {
	store, sheet, _ := seedWorker(t)
	w := NewSyncWorker(store, sheet, sheet, 10)

	err := w.HandleMessage(context.Background(), amqp.NewTransactionSyncMessage(uuid.New(), 1))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestHandleDeleteMessage(t *testing.T) {
	store, sheet, tx := seedWorker(t)
	w := NewSyncWorker(store, sheet, sheet, 10)
	ctx := context.Background()

	if err := w.HandleMessage(ctx, amqp.NewTransactionSyncMessage(tx.ID, 1)); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if err := w.HandleMessage(ctx, amqp.NewTransactionDeleteMessage(tx.ID)); err != nil {
		t.Fatalf("delete message: %v", err)
	}
	if len(sheet.Rows()) != 0 {
		t.Error("row should be removed from the sheet")
	}
}

func TestExportFailureMarksSyncError(t *testing.T) {
	store, _, tx := seedWorker(t)
	w := NewSyncWorker(store, failingWriter{}, nil, 10)

	err := w.HandleMessage(context.Background(), amqp.NewTransactionSyncMessage(tx.ID, 1))
	if err == nil {
		t.Fatal("expected export error")
	}
	if store.status[tx.ID] != storage.SyncError {
		t.Errorf("status: got %q, want error", store.status[tx.ID])
	}
}

func TestProcessPendingDrainsBacklog(t *testing.T) {
	store, sheet, _ := seedWorker(t)

	// add a second pending transaction without conto/category refs
	conto := core.Conto{ID: uuid.New(), Name: "Risparmi", Type: core.ContoSavings}
	store.conti[conto.ID] = conto
	store.add(core.Transaction{
		ID: uuid.New(), AccountID: uuid.New(), Amount: decimal.NewFromInt(10),
		Type: core.TypeIncome, Date: time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
		TargetContoID: &conto.ID, Description: "interessi",
	})

	w := NewSyncWorker(store, sheet, sheet, 10)
	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if len(sheet.Rows()) != 2 {
		t.Errorf("got %d rows, want 2", len(sheet.Rows()))
	}
	for id, s := range store.status {
		if s != storage.SyncSynced {
			t.Errorf("transaction %s status %q, want synced", id, s)
		}
	}
}
