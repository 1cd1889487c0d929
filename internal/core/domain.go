package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContoType classifies a conto (wallet).
const (
	ContoChecking   ContoType = "checking"
	ContoSavings    ContoType = "savings"
	ContoCredit     ContoType = "credit"
	ContoInvestment ContoType = "investment"
	ContoCash       ContoType = "cash"
	ContoOther      ContoType = "other"
)

// TransactionType is the closed set of transaction kinds. Balance-sign
// rules switch exhaustively over these three values; an unknown value
// contributes zero, it never panics.
const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
)

type (
	ContoType       string
	TransactionType string

	// Account is the top-level book: it groups conti, categories,
	// budgets and savings goals under one currency. Deleting an
	// account cascades to everything it owns.
	Account struct {
		ID        uuid.UUID
		Name      string
		Currency  string
		Active    bool
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Conto is an individual wallet owned by an Account. Its current
	// balance is never stored: it is always derived from the initial
	// balance plus the transaction log.
	Conto struct {
		ID             uuid.UUID
		AccountID      uuid.UUID
		Name           string
		Type           ContoType
		InitialBalance decimal.Decimal
		Active         bool

		// Type-specific attributes, nil when not applicable.
		CreditLimit   *decimal.Decimal
		StatementDay  *int // credit: statement-closing day of month
		PaymentDueDay *int // credit: payment-due day of month
		InterestRate  *decimal.Decimal
		SavingsTarget *decimal.Decimal

		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Category labels transactions inside an Account.
	Category struct {
		ID        uuid.UUID
		AccountID uuid.UUID
		Name      string
	}

	// Transaction is one ledger record. Amount is always positive;
	// direction is encoded by Type and by which conto reference is
	// set. A transfer with only one leg set is external on the unset
	// side: money crosses the scope boundary.
	Transaction struct {
		ID            uuid.UUID
		AccountID     uuid.UUID
		Amount        decimal.Decimal
		Type          TransactionType
		Date          time.Time
		SourceContoID *uuid.UUID
		TargetContoID *uuid.UUID
		CategoryID    *uuid.UUID
		Description   string
		Notes         string

		IsRecurring   bool
		Frequency     Frequency
		RecurrenceEnd *time.Time

		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// TransferLink pairs the outgoing and incoming legs of a transfer
	// that arrived as two separate rows (CSV imports of two-row
	// exports). Transfers created in-app are a single row with both
	// legs, so no link is needed for them.
	TransferLink struct {
		ID         uuid.UUID
		OutgoingID uuid.UUID
		IncomingID uuid.UUID
	}

	// SavingsGoal tracks a target amount, optionally tied to a conto.
	SavingsGoal struct {
		ID        uuid.UUID
		AccountID uuid.UUID
		ContoID   *uuid.UUID
		Name      string
		Target    decimal.Decimal
		Deadline  *time.Time
	}

	// Budget caps spending for one category over a recurring period.
	Budget struct {
		ID         uuid.UUID
		AccountID  uuid.UUID
		CategoryID uuid.UUID
		Amount     decimal.Decimal
		Period     BudgetPeriod
	}

	BudgetPeriod string
)

const (
	BudgetMonthly BudgetPeriod = "monthly"
	BudgetYearly  BudgetPeriod = "yearly"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
	ErrMissingConto     = errors.New("missing conto reference")
	ErrInvalidFrequency = errors.New("invalid recurrence frequency")
)

// Valid reports whether t is one of the known conto types.
func (t ContoType) Valid() bool {
	switch t {
	case ContoChecking, ContoSavings, ContoCredit, ContoInvestment, ContoCash, ContoOther:
		return true
	}
	return false
}

// Valid reports whether t is one of the three transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer:
		return true
	}
	return false
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if len(a.Currency) != 3 {
		return errors.New("currency must be a 3-letter code")
	}
	return nil
}

func (c Conto) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return errors.New("invalid conto type")
	}
	if c.StatementDay != nil && (*c.StatementDay < 1 || *c.StatementDay > 31) {
		return errors.New("statement day out of range")
	}
	if c.PaymentDueDay != nil && (*c.PaymentDueDay < 1 || *c.PaymentDueDay > 31) {
		return errors.New("payment due day out of range")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Validate enforces the per-type leg invariants:
// income needs a target conto, expense needs a source conto, and a
// transfer needs at least one leg (a single-leg transfer is external
// on the unset side).
func (tx Transaction) Validate() error {
	if err := ValidateAmount(tx.Amount); err != nil {
		return err
	}
	if tx.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(strings.TrimSpace(tx.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(tx.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	switch tx.Type {
	case TypeIncome:
		if tx.TargetContoID == nil {
			return ErrMissingConto
		}
	case TypeExpense:
		if tx.SourceContoID == nil {
			return ErrMissingConto
		}
	case TypeTransfer:
		if tx.SourceContoID == nil && tx.TargetContoID == nil {
			return ErrMissingConto
		}
	default:
		return ErrInvalidType
	}
	if tx.IsRecurring {
		if !tx.Frequency.Valid() {
			return ErrInvalidFrequency
		}
		if tx.RecurrenceEnd != nil && tx.RecurrenceEnd.Before(tx.Date) {
			return errors.New("recurrence end before transaction date")
		}
	}
	return nil
}

// DisplayAmount is the signed amount from a single-conto perspective:
// negative for expenses, positive for income and transfers.
func (tx Transaction) DisplayAmount() decimal.Decimal {
	switch tx.Type {
	case TypeExpense:
		return tx.Amount.Neg()
	default:
		return tx.Amount
	}
}

// DisplayAmountFor is the perspective-aware signed amount seen from
// one conto. For a transfer the sign depends on which leg the viewer
// occupies; a viewer on neither leg sees zero.
func (tx Transaction) DisplayAmountFor(contoID uuid.UUID) decimal.Decimal {
	switch tx.Type {
	case TypeIncome:
		if tx.TargetContoID != nil && *tx.TargetContoID == contoID {
			return tx.Amount
		}
	case TypeExpense:
		if tx.SourceContoID != nil && *tx.SourceContoID == contoID {
			return tx.Amount.Neg()
		}
	case TypeTransfer:
		if tx.SourceContoID != nil && *tx.SourceContoID == contoID {
			return tx.Amount.Neg()
		}
		if tx.TargetContoID != nil && *tx.TargetContoID == contoID {
			return tx.Amount
		}
	}
	return decimal.Zero
}

func (l TransferLink) Validate() error {
	if l.OutgoingID == uuid.Nil || l.IncomingID == uuid.Nil {
		return errors.New("transfer link requires both legs")
	}
	if l.OutgoingID == l.IncomingID {
		return errors.New("transfer link legs must differ")
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if err := ValidateAmount(g.Target); err != nil {
		return err
	}
	return nil
}

func (b Budget) Validate() error {
	if err := ValidateAmount(b.Amount); err != nil {
		return err
	}
	if b.CategoryID == uuid.Nil {
		return errors.New("budget requires a category")
	}
	switch b.Period {
	case BudgetMonthly, BudgetYearly:
		return nil
	default:
		return errors.New("invalid budget period")
	}
}
