// Package memory is an in-process spreadsheet mirror with the same row
// layout as the Google Sheets one. The worker falls back to it when no
// spreadsheet is configured.
package memory

import (
	"context"
	"errors"
	"sync"

	"spendlog/internal/core"
	"spendlog/internal/sheets/google"
)

type Sheet struct {
	mu   sync.Mutex
	ids  []string
	rows map[string][]any
}

func New() *Sheet {
	return &Sheet{rows: map[string][]any{}}
}

// Upsert replaces the row for e.ID in place or appends it.
func (s *Sheet) Upsert(_ context.Context, e core.Expense) error {
	if e.ID == "" {
		return errors.New("expense without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[e.ID]; !ok {
		s.ids = append(s.ids, e.ID)
	}
	s.rows[e.ID] = google.Row(e)
	return nil
}

// Delete drops the row for id. Missing ids are not an error.
func (s *Sheet) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return nil
	}
	delete(s.rows, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	return nil
}

// Rows returns the header followed by every row in insertion order.
func (s *Sheet) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, 0, len(s.ids)+1)
	out = append(out, google.Header)
	for _, id := range s.ids {
		out = append(out, s.rows[id])
	}
	return out
}

// Len is the number of mirrored expenses.
func (s *Sheet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
