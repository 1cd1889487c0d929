// Package worker runs the spreadsheet export pipeline: it consumes
// sync messages, loads the current transaction row from storage and
// mirrors it to the configured sheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/icesco/PersonalFinance-sub002/internal/amqp"
	"github.com/icesco/PersonalFinance-sub002/internal/core"
	"github.com/icesco/PersonalFinance-sub002/internal/sheets"
)

// Store is the persistence surface the worker needs.
type Store interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error)
	GetConto(ctx context.Context, id uuid.UUID) (core.Conto, error)
	GetCategory(ctx context.Context, id uuid.UUID) (core.Category, error)
	GetPendingSync(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkSynced(ctx context.Context, id uuid.UUID) error
	MarkSyncError(ctx context.Context, id uuid.UUID) error
}

type SyncWorker struct {
	store     Store
	writer    sheets.RowWriter
	deleter   sheets.RowDeleter
	batchSize int
}

func NewSyncWorker(store Store, writer sheets.RowWriter, deleter sheets.RowDeleter, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{store: store, writer: writer, deleter: deleter, batchSize: batchSize}
}

// HandleMessage processes one sync message. The message carries only
// the ID; the row is always loaded fresh from storage, so a stale
// message exports the current state, never an old one.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	if msg.Deleted {
		return w.handleDelete(ctx, msg.ID)
	}

	tx, err := w.store.GetTransaction(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	return w.export(ctx, tx)
}

func (w *SyncWorker) handleDelete(ctx context.Context, id uuid.UUID) error {
	if w.deleter == nil {
		slog.WarnContext(ctx, "No row deleter configured, skipping sheet deletion",
			"transaction_id", id)
		return nil
	}
	if err := w.deleter.Delete(ctx, id.String()); err != nil {
		return fmt.Errorf("delete sheet row: %w", err)
	}
	slog.InfoContext(ctx, "Deleted transaction from sheet", "transaction_id", id)
	return nil
}

// ProcessPending exports rows still marked pending. It backs up the
// AMQP path: a lost message leaves the row pending and this scan
// recovers it.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	return w.processPendingBatch(ctx, w.batchSize)
}

// StartupSyncCheck drains a larger pending backlog once at worker
// startup, recovering from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	return w.processPendingBatch(ctx, w.batchSize*5)
}

func (w *SyncWorker) processPendingBatch(ctx context.Context, limit int) error {
	pending, err := w.store.GetPendingSync(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	synced, failed := 0, 0
	for _, tx := range pending {
		if err := w.export(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending transaction",
				"transaction_id", tx.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Pending scan finished",
		"total", len(pending), "synced", synced, "errors", failed)
	return nil
}

// RunPeriodicScan calls ProcessPending every interval until ctx ends.
func (w *SyncWorker) RunPeriodicScan(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic pending scan failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) export(ctx context.Context, tx core.Transaction) error {
	row, err := w.buildRow(ctx, tx)
	if err != nil {
		return err
	}

	ref, err := w.writer.Upsert(ctx, row)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, tx.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				"transaction_id", tx.ID, "error", markErr)
		}
		return fmt.Errorf("upsert sheet row: %w", err)
	}

	if err := w.store.MarkSynced(ctx, tx.ID); err != nil {
		// The export itself worked; log and move on.
		slog.ErrorContext(ctx, "Failed to mark as synced",
			"transaction_id", tx.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"transaction_id", tx.ID, "sheet_ref", ref, "amount", tx.Amount.String())
	return nil
}

func (w *SyncWorker) buildRow(ctx context.Context, tx core.Transaction) (sheets.Row, error) {
	row := sheets.Row{
		ID:          tx.ID.String(),
		Date:        tx.Date.Format("2006-01-02"),
		Type:        string(tx.Type),
		Amount:      core.FormatAmount(tx.Amount),
		Description: tx.Description,
	}

	var err error
	if row.SourceConto, err = w.contoName(ctx, tx.SourceContoID); err != nil {
		return sheets.Row{}, err
	}
	if row.TargetConto, err = w.contoName(ctx, tx.TargetContoID); err != nil {
		return sheets.Row{}, err
	}
	if tx.CategoryID != nil {
		cat, err := w.store.GetCategory(ctx, *tx.CategoryID)
		if err != nil {
			return sheets.Row{}, fmt.Errorf("resolve category: %w", err)
		}
		row.Category = cat.Name
	}
	return row, nil
}

func (w *SyncWorker) contoName(ctx context.Context, id *uuid.UUID) (string, error) {
	if id == nil {
		return "", nil
	}
	c, err := w.store.GetConto(ctx, *id)
	if err != nil {
		return "", fmt.Errorf("resolve conto: %w", err)
	}
	return c.Name, nil
}
