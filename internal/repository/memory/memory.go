// Package memory is an in-process expense store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"spendlog/internal/core"
	"spendlog/internal/repository"
)

var _ repository.Store = (*Store)(nil)

type Store struct {
	mu    sync.RWMutex
	items map[string]core.Expense
	newID func() string
}

func New() *Store {
	return &Store{
		items: make(map[string]core.Expense),
		newID: uuid.NewString,
	}
}

// NewWithExpenses seeds the store, keeping the ids of the given expenses.
func NewWithExpenses(seed []core.Expense) *Store {
	s := New()
	for _, e := range seed {
		if e.ID == "" {
			e.ID = s.newID()
		}
		s.items[e.ID] = e
	}
	return s
}

func (s *Store) List(_ context.Context, q core.ListQuery) (core.ExpensePage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repository.Paginate(s.snapshot(), q), nil
}

func (s *Store) Get(_ context.Context, id string) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[id]
	if !ok {
		return core.Expense{}, repository.ErrNotFound
	}
	return e, nil
}

// All returns every expense, newest first.
func (s *Store) All(_ context.Context) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snapshot()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExpenseDate.After(out[j].ExpenseDate.Time)
	})
	return out, nil
}

func (s *Store) Create(_ context.Context, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := in.Expense(s.newID())
	s.items[e.ID] = e
	return e, nil
}

func (s *Store) Update(_ context.Context, id string, patch core.ExpensePatch) (core.Expense, error) {
	if err := patch.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return core.Expense{}, repository.ErrNotFound
	}
	e = patch.Apply(e)
	s.items[id] = e
	return e, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) snapshot() []core.Expense {
	out := make([]core.Expense, 0, len(s.items))
	for _, e := range s.items {
		out = append(out, e)
	}
	return out
}
