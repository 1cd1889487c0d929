package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/icesco/PersonalFinance-sub002/internal/core"
)

// Sync statuses for the export pipeline.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

const transactionColumns = `
	SELECT id, account_id, amount, type, date, source_conto_id, target_conto_id,
		category_id, description, notes, is_recurring, frequency, recurrence_end,
		created_at, updated_at
	FROM transactions`

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	now := time.Now().UTC()
	var freq sql.NullString
	if tx.IsRecurring {
		freq = sql.NullString{String: string(tx.Frequency), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, amount, type, date,
			source_conto_id, target_conto_id, category_id, description, notes,
			is_recurring, frequency, recurrence_end, sync_status, version,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID.String(), tx.AccountID.String(), tx.Amount.String(), string(tx.Type),
		tx.Date.UTC().Format(timeFormat),
		nullID(tx.SourceContoID), nullID(tx.TargetContoID), nullID(tx.CategoryID),
		tx.Description, tx.Notes,
		boolInt(tx.IsRecurring), freq, nullTime(tx.RecurrenceEnd),
		SyncPending, 1,
		now.Format(timeFormat), now.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", tx.ID, "type", tx.Type, "amount", tx.Amount.String())
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, transactionColumns+` WHERE id = ?`, id.String())
	return scanTransaction(row)
}

// ListTransactions returns every transaction of the account ordered by
// date, the order the balance engine expects its input in.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		transactionColumns+` WHERE account_id = ? ORDER BY date, created_at`, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListTransactionsBetween returns the account's transactions with
// from <= date < to, ordered by date.
func (r *SQLiteRepository) ListTransactionsBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		transactionColumns+` WHERE account_id = ? AND date >= ? AND date < ? ORDER BY date, created_at`,
		accountID.String(), from.UTC().Format(timeFormat), to.UTC().Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("list transactions between: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListRecurringTransactions returns the account's recurring templates.
func (r *SQLiteRepository) ListRecurringTransactions(ctx context.Context, accountID uuid.UUID) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		transactionColumns+` WHERE account_id = ? AND is_recurring = 1 ORDER BY date`, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListSnapshots projects the account's transactions into the minimal
// balance-input form, ordered by date.
func (r *SQLiteRepository) ListSnapshots(ctx context.Context, accountID uuid.UUID) ([]core.Snapshot, error) {
	txs, err := r.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return core.Snapshots(txs), nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	var freq sql.NullString
	if tx.IsRecurring {
		freq = sql.NullString{String: string(tx.Frequency), Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET amount = ?, type = ?, date = ?,
			source_conto_id = ?, target_conto_id = ?, category_id = ?,
			description = ?, notes = ?, is_recurring = ?, frequency = ?, recurrence_end = ?,
			sync_status = ?, version = version + 1, updated_at = ?
		WHERE id = ?`,
		tx.Amount.String(), string(tx.Type), tx.Date.UTC().Format(timeFormat),
		nullID(tx.SourceContoID), nullID(tx.TargetContoID), nullID(tx.CategoryID),
		tx.Description, tx.Notes, boolInt(tx.IsRecurring), freq, nullTime(tx.RecurrenceEnd),
		SyncPending, time.Now().UTC().Format(timeFormat), tx.ID.String())
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted", "transaction_id", id)
	return nil
}

// --- transfer links ---

// CreateTransferLink pairs the two legs of an imported transfer inside
// one SQL transaction so a half-written pair can never persist.
func (r *SQLiteRepository) CreateTransferLink(ctx context.Context, link core.TransferLink) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transfer link tx: %w", err)
	}
	defer sqlTx.Rollback()

	for _, legID := range []uuid.UUID{link.OutgoingID, link.IncomingID} {
		var typ string
		err := sqlTx.QueryRowContext(ctx,
			`SELECT type FROM transactions WHERE id = ?`, legID.String()).Scan(&typ)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transfer leg %s: %w", legID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("check transfer leg: %w", err)
		}
	}

	_, err = sqlTx.ExecContext(ctx,
		`INSERT INTO transfer_links (id, outgoing_id, incoming_id) VALUES (?, ?, ?)`,
		link.ID.String(), link.OutgoingID.String(), link.IncomingID.String())
	if err != nil {
		return fmt.Errorf("insert transfer link: %w", err)
	}
	return sqlTx.Commit()
}

// GetTransferPeer returns the opposite leg of a linked transfer, or
// ErrNotFound when the transaction is not part of a link.
func (r *SQLiteRepository) GetTransferPeer(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var peer string
	err := r.db.QueryRowContext(ctx, `
		SELECT CASE WHEN outgoing_id = ? THEN incoming_id ELSE outgoing_id END
		FROM transfer_links WHERE outgoing_id = ? OR incoming_id = ?`,
		id.String(), id.String(), id.String()).Scan(&peer)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("get transfer peer: %w", err)
	}
	return uuid.Parse(peer)
}

// --- sync bookkeeping for the export pipeline ---

func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		transactionColumns+` WHERE sync_status = ? ORDER BY updated_at LIMIT ?`,
		SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id uuid.UUID) error {
	return r.setSyncStatus(ctx, id, SyncSynced)
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id uuid.UUID) error {
	return r.setSyncStatus(ctx, id, SyncError)
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC().Format(timeFormat), id.String())
	if err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	return requireRow(res)
}

// --- scan helpers ---

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx                      core.Transaction
		id, accountID           string
		amount, typ, date       string
		source, target, catID   sql.NullString
		recurring               int
		freq, recEnd            sql.NullString
		createdAt, updatedAt    string
	)
	err := row.Scan(&id, &accountID, &amount, &typ, &date, &source, &target,
		&catID, &tx.Description, &tx.Notes, &recurring, &freq, &recEnd,
		&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	if tx.ID, err = uuid.Parse(id); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction id: %w", err)
	}
	if tx.AccountID, err = uuid.Parse(accountID); err != nil {
		return core.Transaction{}, fmt.Errorf("parse account id: %w", err)
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount: %w", err)
	}
	tx.Type = core.TransactionType(typ)
	if tx.Date, err = time.Parse(timeFormat, date); err != nil {
		return core.Transaction{}, fmt.Errorf("parse date: %w", err)
	}
	if tx.SourceContoID, err = idPtr(source); err != nil {
		return core.Transaction{}, fmt.Errorf("parse source conto id: %w", err)
	}
	if tx.TargetContoID, err = idPtr(target); err != nil {
		return core.Transaction{}, fmt.Errorf("parse target conto id: %w", err)
	}
	if tx.CategoryID, err = idPtr(catID); err != nil {
		return core.Transaction{}, fmt.Errorf("parse category id: %w", err)
	}
	tx.IsRecurring = recurring != 0
	if freq.Valid {
		tx.Frequency = core.Frequency(freq.String)
	}
	if tx.RecurrenceEnd, err = timePtr(recEnd); err != nil {
		return core.Transaction{}, fmt.Errorf("parse recurrence end: %w", err)
	}
	if tx.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at: %w", err)
	}
	if tx.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return tx, nil
}
