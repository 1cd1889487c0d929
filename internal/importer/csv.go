// Package importer loads transactions from CSV exports. The expected
// layout is one row per movement:
//
//	date,type,amount,source_conto,target_conto,category,description,notes
//
// Transfers exported as two rows (an outgoing and an incoming leg)
// are re-paired during import and stored as a linked pair. Conto and
// category names the account does not know yet are created during the
// import, so a fresh export loads into an empty account.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/icesco/PersonalFinance-sub002/internal/core"
	"github.com/icesco/PersonalFinance-sub002/internal/storage"
)

const dateLayout = "2006-01-02"

// Lookup resolves conto and category names for one account and
// creates the ones an import names for the first time.
type Lookup interface {
	ListConti(ctx context.Context, accountID uuid.UUID) ([]core.Conto, error)
	CreateConto(ctx context.Context, c core.Conto) error
	ListCategories(ctx context.Context, accountID uuid.UUID) ([]core.Category, error)
	GetCategoryByName(ctx context.Context, accountID uuid.UUID, name string) (core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) error
}

// Writer is the subset of the transaction service the importer needs.
type Writer interface {
	Create(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	CreateTransferPair(ctx context.Context, outgoing, incoming core.Transaction) (core.TransferLink, error)
}

type Importer struct {
	lookup Lookup
	writer Writer
}

func New(lookup Lookup, writer Writer) *Importer {
	return &Importer{lookup: lookup, writer: writer}
}

// Result summarizes one import run.
type Result struct {
	Imported  int
	Transfers int // linked pairs
	Errors    []RowError
}

// RowError carries the 1-based data row number with the failure.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// names caches the account's conto and category names for the
// duration of one import, so a thousand-row file does two lookups,
// not two thousand. Names the file mentions for the first time are
// created through the lookup and recorded in the cache, so later rows
// reuse them instead of creating duplicates.
type names struct {
	accountID  uuid.UUID
	lookup     Lookup
	conti      map[string]uuid.UUID
	categories map[string]uuid.UUID
}

func (i *Importer) loadNames(ctx context.Context, accountID uuid.UUID) (*names, error) {
	conti, err := i.lookup.ListConti(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load conti: %w", err)
	}
	categories, err := i.lookup.ListCategories(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	n := &names{
		accountID:  accountID,
		lookup:     i.lookup,
		conti:      make(map[string]uuid.UUID, len(conti)),
		categories: make(map[string]uuid.UUID, len(categories)),
	}
	for _, c := range conti {
		n.conti[normalizeName(c.Name)] = c.ID
	}
	for _, c := range categories {
		n.categories[normalizeName(c.Name)] = c.ID
	}
	return n, nil
}

// conto resolves a conto name, creating it on first sight. A conto
// created this way starts at zero balance with type "other"; its real
// type and initial balance can be edited afterwards.
func (n *names) conto(ctx context.Context, field string) (*uuid.UUID, error) {
	name := strings.TrimSpace(field)
	if name == "" {
		return nil, nil
	}
	key := normalizeName(name)
	if id, ok := n.conti[key]; ok {
		return &id, nil
	}

	c := core.Conto{
		ID:        uuid.New(),
		AccountID: n.accountID,
		Name:      name,
		Type:      core.ContoOther,
		Active:    true,
	}
	if err := n.lookup.CreateConto(ctx, c); err != nil {
		return nil, fmt.Errorf("create conto %q: %w", name, err)
	}
	n.conti[key] = c.ID
	return &c.ID, nil
}

// category resolves a category name, creating it on first sight. The
// categories table is unique on (account, name), so a cache miss is
// confirmed against the store before creating.
func (n *names) category(ctx context.Context, field string) (*uuid.UUID, error) {
	name := strings.TrimSpace(field)
	if name == "" {
		return nil, nil
	}
	key := normalizeName(name)
	if id, ok := n.categories[key]; ok {
		return &id, nil
	}

	existing, err := n.lookup.GetCategoryByName(ctx, n.accountID, name)
	switch {
	case err == nil:
		n.categories[key] = existing.ID
		id := existing.ID
		return &id, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("lookup category %q: %w", name, err)
	}

	c := core.Category{ID: uuid.New(), AccountID: n.accountID, Name: name}
	if err := n.lookup.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("create category %q: %w", name, err)
	}
	n.categories[key] = c.ID
	return &c.ID, nil
}

// Import reads r to the end. Bad rows are collected per row number and
// skipped; good rows still import.
func (i *Importer) Import(ctx context.Context, accountID uuid.UUID, r io.Reader) (Result, error) {
	lookup, err := i.loadNames(ctx, accountID)
	if err != nil {
		return Result{}, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return Result{}, err
	}

	var (
		result  Result
		pending []pendingLeg // transfer legs waiting for their peer
		rowNum  int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNum, Err: err})
			continue
		}

		tx, err := parseRow(ctx, record, accountID, lookup)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNum, Err: err})
			continue
		}

		if tx.Type == core.TypeTransfer && oneLeg(tx) {
			if peer, rest, ok := matchLeg(pending, tx); ok {
				pending = rest
				if err := i.importPair(ctx, peer.tx, tx, &result, peer.row, rowNum); err == nil {
					result.Transfers++
				}
				continue
			}
			pending = append(pending, pendingLeg{tx: tx, row: rowNum})
			continue
		}

		if _, err := i.writer.Create(ctx, tx); err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNum, Err: err})
			continue
		}
		result.Imported++
	}

	// Unmatched legs import as single-row external transfers.
	for _, leg := range pending {
		if _, err := i.writer.Create(ctx, leg.tx); err != nil {
			result.Errors = append(result.Errors, RowError{Row: leg.row, Err: err})
			continue
		}
		result.Imported++
	}

	slog.InfoContext(ctx, "CSV import finished",
		"account_id", accountID,
		"imported", result.Imported,
		"transfer_pairs", result.Transfers,
		"errors", len(result.Errors))
	return result, nil
}

type pendingLeg struct {
	tx  core.Transaction
	row int
}

func (i *Importer) importPair(ctx context.Context, a, b core.Transaction, result *Result, rowA, rowB int) error {
	outgoing, incoming := a, b
	if outgoing.SourceContoID == nil {
		outgoing, incoming = b, a
		rowA, rowB = rowB, rowA
	}
	if _, err := i.writer.CreateTransferPair(ctx, outgoing, incoming); err != nil {
		result.Errors = append(result.Errors, RowError{Row: rowA, Err: err})
		return err
	}
	result.Imported += 2
	return nil
}

// matchLeg finds the opposite leg for tx among pending: same date,
// same amount, opposite direction.
func matchLeg(pending []pendingLeg, tx core.Transaction) (pendingLeg, []pendingLeg, bool) {
	wantSource := tx.SourceContoID == nil
	for i, leg := range pending {
		if !leg.tx.Date.Equal(tx.Date) || !leg.tx.Amount.Equal(tx.Amount) {
			continue
		}
		if wantSource != (leg.tx.SourceContoID != nil) {
			continue
		}
		rest := append(pending[:i:i], pending[i+1:]...)
		return leg, rest, true
	}
	return pendingLeg{}, pending, false
}

func oneLeg(tx core.Transaction) bool {
	return (tx.SourceContoID == nil) != (tx.TargetContoID == nil)
}

var expectedHeader = []string{
	"date", "type", "amount", "source_conto", "target_conto", "category", "description", "notes",
}

func checkHeader(header []string) error {
	if len(header) < len(expectedHeader) {
		return fmt.Errorf("header has %d columns, want %d", len(header), len(expectedHeader))
	}
	for i, want := range expectedHeader {
		if normalizeName(header[i]) != want {
			return fmt.Errorf("header column %d is %q, want %q", i+1, header[i], want)
		}
	}
	return nil
}

func parseRow(ctx context.Context, record []string, accountID uuid.UUID, lookup *names) (core.Transaction, error) {
	if len(record) < len(expectedHeader) {
		return core.Transaction{}, fmt.Errorf("row has %d columns, want %d", len(record), len(expectedHeader))
	}

	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(record[0]), time.UTC)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", record[0], err)
	}

	typ := core.TransactionType(strings.ToLower(strings.TrimSpace(record[1])))
	if !typ.Valid() {
		return core.Transaction{}, fmt.Errorf("%w: %q", core.ErrInvalidType, record[1])
	}

	amount, err := core.ParseAmount(record[2])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", record[2], err)
	}

	tx := core.Transaction{
		AccountID:   accountID,
		Amount:      amount,
		Type:        typ,
		Date:        date,
		Description: strings.TrimSpace(record[6]),
		Notes:       strings.TrimSpace(record[7]),
	}

	if tx.SourceContoID, err = lookup.conto(ctx, record[3]); err != nil {
		return core.Transaction{}, err
	}
	if tx.TargetContoID, err = lookup.conto(ctx, record[4]); err != nil {
		return core.Transaction{}, err
	}
	if tx.CategoryID, err = lookup.category(ctx, record[5]); err != nil {
		return core.Transaction{}, err
	}

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
