package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/icesco/PersonalFinance-sub002/internal/core"
)

// --- categories ---

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, account_id, name) VALUES (?, ?, ?)`,
		c.ID.String(), c.AccountID.String(), c.Name)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id uuid.UUID) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, name FROM categories WHERE id = ?`, id.String())
	return scanCategory(row)
}

// GetCategoryByName resolves a category inside one account by its
// unique name, the lookup CSV import relies on.
func (r *SQLiteRepository) GetCategoryByName(ctx context.Context, accountID uuid.UUID, name string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, name FROM categories WHERE account_id = ? AND name = ?`,
		accountID.String(), name)
	return scanCategory(row)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, accountID uuid.UUID) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, name FROM categories WHERE account_id = ? ORDER BY name`,
		accountID.String())
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res)
}

// SumExpensesByCategory totals the account's expenses per category for
// from <= date < to. Summation happens in Go on decimals, never in
// SQLite floats.
func (r *SQLiteRepository) SumExpensesByCategory(ctx context.Context, accountID uuid.UUID, from, to time.Time) (map[uuid.UUID]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category_id, amount FROM transactions
		WHERE account_id = ? AND type = 'expense' AND category_id IS NOT NULL
			AND date >= ? AND date < ?`,
		accountID.String(), from.UTC().Format(timeFormat), to.UTC().Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("sum expenses by category: %w", err)
	}
	defer rows.Close()

	totals := make(map[uuid.UUID]decimal.Decimal)
	for rows.Next() {
		var catID, amount string
		if err := rows.Scan(&catID, &amount); err != nil {
			return nil, fmt.Errorf("scan expense row: %w", err)
		}
		id, err := uuid.Parse(catID)
		if err != nil {
			return nil, fmt.Errorf("parse category id: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount: %w", err)
		}
		totals[id] = totals[id].Add(d)
	}
	return totals, rows.Err()
}

// --- budgets ---

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (id, account_id, category_id, amount, period) VALUES (?, ?, ?, ?, ?)`,
		b.ID.String(), b.AccountID.String(), b.CategoryID.String(),
		b.Amount.String(), string(b.Period))
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, accountID uuid.UUID) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, category_id, amount, period FROM budgets WHERE account_id = ?`,
		accountID.String())
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var (
			b                   core.Budget
			id, accID, catID    string
			amount, period      string
		)
		if err := rows.Scan(&id, &accID, &catID, &amount, &period); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if b.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse budget id: %w", err)
		}
		if b.AccountID, err = uuid.Parse(accID); err != nil {
			return nil, fmt.Errorf("parse account id: %w", err)
		}
		if b.CategoryID, err = uuid.Parse(catID); err != nil {
			return nil, fmt.Errorf("parse category id: %w", err)
		}
		if b.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse budget amount: %w", err)
		}
		b.Period = core.BudgetPeriod(period)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRow(res)
}

// --- savings goals ---

func (r *SQLiteRepository) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO savings_goals (id, account_id, conto_id, name, target, deadline)
		VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID.String(), g.AccountID.String(), nullID(g.ContoID),
		g.Name, g.Target.String(), nullTime(g.Deadline))
	if err != nil {
		return fmt.Errorf("insert savings goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListSavingsGoals(ctx context.Context, accountID uuid.UUID) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, conto_id, name, target, deadline
		FROM savings_goals WHERE account_id = ? ORDER BY name`, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close()

	var out []core.SavingsGoal
	for rows.Next() {
		var (
			g              core.SavingsGoal
			id, accID      string
			contoID        sql.NullString
			target         string
			deadline       sql.NullString
		)
		if err := rows.Scan(&id, &accID, &contoID, &g.Name, &target, &deadline); err != nil {
			return nil, fmt.Errorf("scan savings goal: %w", err)
		}
		if g.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse goal id: %w", err)
		}
		if g.AccountID, err = uuid.Parse(accID); err != nil {
			return nil, fmt.Errorf("parse account id: %w", err)
		}
		if g.ContoID, err = idPtr(contoID); err != nil {
			return nil, fmt.Errorf("parse conto id: %w", err)
		}
		if g.Target, err = decimal.NewFromString(target); err != nil {
			return nil, fmt.Errorf("parse target: %w", err)
		}
		if g.Deadline, err = timePtr(deadline); err != nil {
			return nil, fmt.Errorf("parse deadline: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteSavingsGoal(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM savings_goals WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete savings goal: %w", err)
	}
	return requireRow(res)
}

func scanCategory(row rowScanner) (core.Category, error) {
	var (
		c         core.Category
		id, accID string
	)
	err := row.Scan(&id, &accID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("scan category: %w", err)
	}
	if c.ID, err = uuid.Parse(id); err != nil {
		return core.Category{}, fmt.Errorf("parse category id: %w", err)
	}
	if c.AccountID, err = uuid.Parse(accID); err != nil {
		return core.Category{}, fmt.Errorf("parse account id: %w", err)
	}
	return c, nil
}
