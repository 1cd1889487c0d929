// Package sheets defines the outbound ports for the spreadsheet
// export pipeline and the row format that crosses them.
package sheets

import "context"

// Row is one exported transaction. The ID column lets the worker
// upsert and delete by transaction identity instead of guessing by
// content.
type Row struct {
	ID          string
	Date        string // YYYY-MM-DD
	Type        string
	Amount      string // decimal text, dot separator
	SourceConto string
	TargetConto string
	Category    string
	Description string
}

func (r Row) Values() []any {
	return []any{r.ID, r.Date, r.Type, r.Amount, r.SourceConto, r.TargetConto, r.Category, r.Description}
}

type (
	// RowWriter upserts a row keyed by its ID and returns a
	// spreadsheet range reference for the written row.
	RowWriter interface {
		Upsert(ctx context.Context, row Row) (rowRef string, err error)
	}

	RowDeleter interface {
		Delete(ctx context.Context, id string) error
	}
)
