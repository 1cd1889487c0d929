// Package storage is the SQLite persistence collaborator. It holds
// entities and answers the date/conto/category queries the balance
// engine's callers need; it never stores a computed balance.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/icesco/PersonalFinance-sub002/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Timestamps are stored as UTC RFC3339 TEXT: second precision keeps
// the strings fixed-width, so SQLite's lexicographic comparison agrees
// with chronological order in range queries.
const timeFormat = time.RFC3339

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- accounts ---

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, currency, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.Name, a.Currency, boolInt(a.Active),
		now.Format(timeFormat), now.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	slog.InfoContext(ctx, "Account created", "account_id", a.ID, "name", a.Name)
	return nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id uuid.UUID) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, currency, active, created_at, updated_at
		FROM accounts WHERE id = ?`, id.String())
	return scanAccount(row)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, currency, active, created_at, updated_at
		FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET name = ?, currency = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		a.Name, a.Currency, boolInt(a.Active), time.Now().UTC().Format(timeFormat), a.ID.String())
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(res)
}

// DeleteAccount destroys the account and, through foreign keys,
// everything it owns: conti, categories, transactions, budgets,
// savings goals.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Account deleted with owned entities", "account_id", id)
	return nil
}

// --- conti ---

func (r *SQLiteRepository) CreateConto(ctx context.Context, c core.Conto) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conti (id, account_id, name, type, initial_balance, active,
			credit_limit, statement_day, payment_due_day, interest_rate, savings_target,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.AccountID.String(), c.Name, string(c.Type),
		c.InitialBalance.String(), boolInt(c.Active),
		nullDecimal(c.CreditLimit), nullInt(c.StatementDay), nullInt(c.PaymentDueDay),
		nullDecimal(c.InterestRate), nullDecimal(c.SavingsTarget),
		now.Format(timeFormat), now.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert conto: %w", err)
	}

	slog.InfoContext(ctx, "Conto created",
		"conto_id", c.ID, "account_id", c.AccountID, "name", c.Name, "type", c.Type)
	return nil
}

func (r *SQLiteRepository) GetConto(ctx context.Context, id uuid.UUID) (core.Conto, error) {
	row := r.db.QueryRowContext(ctx, contoColumns+` WHERE id = ?`, id.String())
	return scanConto(row)
}

func (r *SQLiteRepository) ListConti(ctx context.Context, accountID uuid.UUID) ([]core.Conto, error) {
	rows, err := r.db.QueryContext(ctx, contoColumns+` WHERE account_id = ? ORDER BY created_at`, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("list conti: %w", err)
	}
	defer rows.Close()

	var out []core.Conto
	for rows.Next() {
		c, err := scanConto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateConto(ctx context.Context, c core.Conto) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE conti SET name = ?, type = ?, initial_balance = ?, active = ?,
			credit_limit = ?, statement_day = ?, payment_due_day = ?,
			interest_rate = ?, savings_target = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, string(c.Type), c.InitialBalance.String(), boolInt(c.Active),
		nullDecimal(c.CreditLimit), nullInt(c.StatementDay), nullInt(c.PaymentDueDay),
		nullDecimal(c.InterestRate), nullDecimal(c.SavingsTarget),
		time.Now().UTC().Format(timeFormat), c.ID.String())
	if err != nil {
		return fmt.Errorf("update conto: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteConto(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM conti WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete conto: %w", err)
	}
	return requireRow(res)
}

const contoColumns = `
	SELECT id, account_id, name, type, initial_balance, active,
		credit_limit, statement_day, payment_due_day, interest_rate, savings_target,
		created_at, updated_at
	FROM conti`

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (core.Account, error) {
	var (
		a                    core.Account
		id                   string
		active               int
		createdAt, updatedAt string
	)
	err := row.Scan(&id, &a.Name, &a.Currency, &active, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	if a.ID, err = uuid.Parse(id); err != nil {
		return core.Account{}, fmt.Errorf("parse account id: %w", err)
	}
	a.Active = active != 0
	if a.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return core.Account{}, fmt.Errorf("parse created_at: %w", err)
	}
	if a.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return core.Account{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return a, nil
}

func scanConto(row rowScanner) (core.Conto, error) {
	var (
		c                        core.Conto
		id, accountID, typ       string
		initial                  string
		active                   int
		creditLimit, rate, goal  sql.NullString
		statementDay, dueDay     sql.NullInt64
		createdAt, updatedAt     string
	)
	err := row.Scan(&id, &accountID, &c.Name, &typ, &initial, &active,
		&creditLimit, &statementDay, &dueDay, &rate, &goal, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Conto{}, ErrNotFound
	}
	if err != nil {
		return core.Conto{}, fmt.Errorf("scan conto: %w", err)
	}

	if c.ID, err = uuid.Parse(id); err != nil {
		return core.Conto{}, fmt.Errorf("parse conto id: %w", err)
	}
	if c.AccountID, err = uuid.Parse(accountID); err != nil {
		return core.Conto{}, fmt.Errorf("parse account id: %w", err)
	}
	c.Type = core.ContoType(typ)
	if c.InitialBalance, err = decimal.NewFromString(initial); err != nil {
		return core.Conto{}, fmt.Errorf("parse initial balance: %w", err)
	}
	c.Active = active != 0
	if c.CreditLimit, err = decimalPtr(creditLimit); err != nil {
		return core.Conto{}, fmt.Errorf("parse credit limit: %w", err)
	}
	c.StatementDay = intPtr(statementDay)
	c.PaymentDueDay = intPtr(dueDay)
	if c.InterestRate, err = decimalPtr(rate); err != nil {
		return core.Conto{}, fmt.Errorf("parse interest rate: %w", err)
	}
	if c.SavingsTarget, err = decimalPtr(goal); err != nil {
		return core.Conto{}, fmt.Errorf("parse savings target: %w", err)
	}
	if c.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return core.Conto{}, fmt.Errorf("parse created_at: %w", err)
	}
	if c.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return core.Conto{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return c, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func nullID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeFormat), Valid: true}
}

func decimalPtr(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func intPtr(i sql.NullInt64) *int {
	if !i.Valid {
		return nil
	}
	v := int(i.Int64)
	return &v
}

func idPtr(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func timePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeFormat, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
