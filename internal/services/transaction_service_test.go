package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/icesco/PersonalFinance-sub002/internal/core"
)

func expenseTx(accountID, contoID uuid.UUID, amount int64, date time.Time) core.Transaction {
	id := contoID
	return core.Transaction{
		AccountID:     accountID,
		Amount:        decimal.NewFromInt(amount),
		Type:          core.TypeExpense,
		Date:          date,
		SourceContoID: &id,
		Description:   "spesa",
	}
}

func TestCreateAssignsIDAndPublishes(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewTransactionService(store, pub)

	accountID, contoID := uuid.New(), uuid.New()
	tx, err := svc.Create(context.Background(),
		expenseTx(accountID, contoID, 50, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tx.ID == uuid.Nil {
		t.Error("Create should assign an ID")
	}
	if len(store.transactions) != 1 {
		t.Fatalf("stored %d transactions, want 1", len(store.transactions))
	}
	if len(pub.published) != 1 || pub.published[0].ID != tx.ID {
		t.Errorf("expected one sync message for %s", tx.ID)
	}
}

func TestCreateRejectsInvalidTransaction(t *testing.T) {
	svc := NewTransactionService(&fakeStore{}, nil)

	tx := expenseTx(uuid.New(), uuid.New(), 50, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	tx.SourceContoID = nil // expense without source conto
	if _, err := svc.Create(context.Background(), tx); !errors.Is(err, core.ErrMissingConto) {
		t.Errorf("got %v, want ErrMissingConto", err)
	}
}

func TestCreateSurvivesPublishFailure(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{fail: true}
	svc := NewTransactionService(store, pub)

	_, err := svc.Create(context.Background(),
		expenseTx(uuid.New(), uuid.New(), 50, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("Create should not fail on publish error: %v", err)
	}
	if len(store.transactions) != 1 {
		t.Error("transaction should be stored despite publish failure")
	}
}

func TestCreateTransferPairLinksLegs(t *testing.T) {
	store := &fakeStore{}
	svc := NewTransactionService(store, nil)

	accountID := uuid.New()
	src, dst := uuid.New(), uuid.New()
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	out := core.Transaction{
		AccountID: accountID, Amount: decimal.NewFromInt(300), Type: core.TypeTransfer,
		Date: date, SourceContoID: &src, Description: "giroconto uscita",
	}
	in := core.Transaction{
		AccountID: accountID, Amount: decimal.NewFromInt(300), Type: core.TypeTransfer,
		Date: date, TargetContoID: &dst, Description: "giroconto entrata",
	}

	link, err := svc.CreateTransferPair(context.Background(), out, in)
	if err != nil {
		t.Fatalf("CreateTransferPair: %v", err)
	}
	if len(store.transactions) != 2 || len(store.links) != 1 {
		t.Fatalf("stored %d transactions, %d links", len(store.transactions), len(store.links))
	}
	if link.OutgoingID == link.IncomingID {
		t.Error("legs must have distinct IDs")
	}
}

func TestCreateTransferPairRejectsNonTransfers(t *testing.T) {
	svc := NewTransactionService(&fakeStore{}, nil)
	contoID := uuid.New()
	exp := expenseTx(uuid.New(), contoID, 10, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))

	if _, err := svc.CreateTransferPair(context.Background(), exp, exp); !errors.Is(err, core.ErrInvalidType) {
		t.Errorf("got %v, want ErrInvalidType", err)
	}
}

func TestDeleteRemovesLinkedPeer(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewTransactionService(store, pub)

	accountID := uuid.New()
	src, dst := uuid.New(), uuid.New()
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	out := core.Transaction{
		AccountID: accountID, Amount: decimal.NewFromInt(300), Type: core.TypeTransfer,
		Date: date, SourceContoID: &src, Description: "uscita",
	}
	in := core.Transaction{
		AccountID: accountID, Amount: decimal.NewFromInt(300), Type: core.TypeTransfer,
		Date: date, TargetContoID: &dst, Description: "entrata",
	}
	link, err := svc.CreateTransferPair(context.Background(), out, in)
	if err != nil {
		t.Fatalf("CreateTransferPair: %v", err)
	}

	pub.published = nil
	if err := svc.Delete(context.Background(), link.OutgoingID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(store.transactions) != 0 {
		t.Errorf("peer leg should be deleted too, %d left", len(store.transactions))
	}

	deletes := 0
	for _, m := range pub.published {
		if m.Deleted {
			deletes++
		}
	}
	if deletes != 2 {
		t.Errorf("published %d delete messages, want 2", deletes)
	}
}

func TestDeleteUnlinkedTransaction(t *testing.T) {
	store := &fakeStore{}
	svc := NewTransactionService(store, nil)

	tx, err := svc.Create(context.Background(),
		expenseTx(uuid.New(), uuid.New(), 50, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(context.Background(), tx.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(store.transactions) != 0 {
		t.Error("transaction should be gone")
	}
}

func TestDeleteAbortsWhenPeerLookupFails(t *testing.T) {
	store := &fakeStore{}
	svc := NewTransactionService(store, nil)

	tx, err := svc.Create(context.Background(),
		expenseTx(uuid.New(), uuid.New(), 50, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// A transient failure must not pass for "no link": deleting the leg
	// anyway could leave a linked peer behind.
	store.peerErr = errors.New("database is locked")
	if err := svc.Delete(context.Background(), tx.ID); err == nil {
		t.Fatal("Delete should fail when the peer lookup fails")
	}
	if len(store.transactions) != 1 {
		t.Errorf("nothing should be deleted, %d transactions left", len(store.transactions))
	}

	store.peerErr = nil
	if err := svc.Delete(context.Background(), tx.ID); err != nil {
		t.Fatalf("Delete after recovery: %v", err)
	}
	if len(store.transactions) != 0 {
		t.Error("transaction should be gone")
	}
}

func TestUpcomingProjectsRecurringTemplates(t *testing.T) {
	store := &fakeStore{}
	svc := NewTransactionService(store, nil)

	accountID, contoID := uuid.New(), uuid.New()
	tmpl := expenseTx(accountID, contoID, 25, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))
	tmpl.ID = uuid.New()
	tmpl.IsRecurring = true
	tmpl.Frequency = core.Monthly
	store.transactions = append(store.transactions, tmpl)

	got, err := svc.Upcoming(context.Background(), accountID, time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d occurrences, want 3", len(got))
	}
	want := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	if !got[0].Date.Equal(want) {
		t.Errorf("first occurrence: got %v, want %v", got[0].Date, want)
	}
}
