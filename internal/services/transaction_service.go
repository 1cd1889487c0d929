// Package services orchestrates the domain operations across storage,
// the balance engine and the async export pipeline.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/icesco/PersonalFinance-sub002/internal/amqp"
	"github.com/icesco/PersonalFinance-sub002/internal/core"
	"github.com/icesco/PersonalFinance-sub002/internal/storage"
)

// TransactionStore is the persistence surface the transaction service
// needs.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx core.Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	ListTransactions(ctx context.Context, accountID uuid.UUID) ([]core.Transaction, error)
	ListRecurringTransactions(ctx context.Context, accountID uuid.UUID) ([]core.Transaction, error)
	CreateTransferLink(ctx context.Context, link core.TransferLink) error
	GetTransferPeer(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// SyncPublisher enqueues export requests. nil disables the pipeline.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, msg *amqp.TransactionSyncMessage) error
}

type TransactionService struct {
	store     TransactionStore
	publisher SyncPublisher
}

func NewTransactionService(store TransactionStore, publisher SyncPublisher) *TransactionService {
	return &TransactionService{store: store, publisher: publisher}
}

// Create validates and persists a transaction, then enqueues it for
// export. The export publish is non-fatal: the row stays pending and
// the worker's periodic scan picks it up later.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publishSync(ctx, amqp.NewTransactionSyncMessage(tx.ID, 1))
	return tx, nil
}

// CreateTransferPair persists the two legs of an imported transfer
// and links them, so later edits and deletes treat them as one move.
func (s *TransactionService) CreateTransferPair(ctx context.Context, outgoing, incoming core.Transaction) (core.TransferLink, error) {
	if outgoing.Type != core.TypeTransfer || incoming.Type != core.TypeTransfer {
		return core.TransferLink{}, core.ErrInvalidType
	}

	var err error
	if outgoing, err = s.Create(ctx, outgoing); err != nil {
		return core.TransferLink{}, fmt.Errorf("outgoing leg: %w", err)
	}
	if incoming, err = s.Create(ctx, incoming); err != nil {
		return core.TransferLink{}, fmt.Errorf("incoming leg: %w", err)
	}

	link := core.TransferLink{ID: uuid.New(), OutgoingID: outgoing.ID, IncomingID: incoming.ID}
	if err := link.Validate(); err != nil {
		return core.TransferLink{}, err
	}
	if err := s.store.CreateTransferLink(ctx, link); err != nil {
		return core.TransferLink{}, fmt.Errorf("link transfer legs: %w", err)
	}

	slog.InfoContext(ctx, "Transfer pair linked",
		"outgoing_id", link.OutgoingID, "incoming_id", link.IncomingID)
	return link, nil
}

func (s *TransactionService) Get(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *TransactionService) List(ctx context.Context, accountID uuid.UUID) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, accountID)
}

func (s *TransactionService) Update(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}
	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	s.publishSync(ctx, amqp.NewTransactionSyncMessage(tx.ID, 2))
	return nil
}

// Delete removes a transaction. When the transaction is one leg of a
// linked transfer the peer leg goes with it: a half-deleted transfer
// would silently shift the total balance.
func (s *TransactionService) Delete(ctx context.Context, id uuid.UUID) error {
	peer, err := s.store.GetTransferPeer(ctx, id)
	hasPeer := err == nil
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		// Deleting one leg while the link is unknown could orphan the
		// other, so nothing is deleted until the lookup works.
		return fmt.Errorf("look up transfer peer: %w", err)
	}

	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publishSync(ctx, amqp.NewTransactionDeleteMessage(id))

	if hasPeer {
		if err := s.store.DeleteTransaction(ctx, peer); err != nil {
			return fmt.Errorf("delete transfer peer: %w", err)
		}
		s.publishSync(ctx, amqp.NewTransactionDeleteMessage(peer))
		slog.InfoContext(ctx, "Deleted linked transfer peer",
			"transaction_id", id, "peer_id", peer)
	}
	return nil
}

// Upcoming projects the account's recurring templates into their
// concrete occurrence dates up to horizon.
func (s *TransactionService) Upcoming(ctx context.Context, accountID uuid.UUID, horizon time.Time) ([]UpcomingOccurrence, error) {
	templates, err := s.store.ListRecurringTransactions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}

	var out []UpcomingOccurrence
	for _, tx := range templates {
		for _, d := range tx.Occurrences(horizon) {
			out = append(out, UpcomingOccurrence{Template: tx, Date: d})
		}
	}
	return out, nil
}

// UpcomingOccurrence is one projected instance of a recurring
// transaction.
type UpcomingOccurrence struct {
	Template core.Transaction
	Date     time.Time
}

func (s *TransactionService) publishSync(ctx context.Context, msg *amqp.TransactionSyncMessage) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP publisher not available, skipping sync message",
			"transaction_id", msg.ID)
		return
	}
	if err := s.publisher.PublishTransactionSync(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"transaction_id", msg.ID, "error", err)
	}
}
