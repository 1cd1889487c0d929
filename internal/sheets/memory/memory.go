// Package memory is an in-memory sheets adapter for tests and local
// runs without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	ports "github.com/icesco/PersonalFinance-sub002/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []ports.Row
}

var (
	_ ports.RowWriter  = (*Store)(nil)
	_ ports.RowDeleter = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

func (s *Store) Upsert(_ context.Context, row ports.Row) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.rows {
		if r.ID == row.ID {
			s.rows[i] = row
			return fmt.Sprintf("memory!A%d", i+1), nil
		}
	}
	s.rows = append(s.rows, row)
	return fmt.Sprintf("memory!A%d", len(s.rows)), nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.rows {
		if r.ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the stored rows in insertion order.
func (s *Store) Rows() []ports.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.Row, len(s.rows))
	copy(out, s.rows)
	return out
}
