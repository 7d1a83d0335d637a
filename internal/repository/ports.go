// Package repository defines the storage ports for expenses and the helpers
// shared by their implementations.
package repository

import (
	"context"
	"errors"

	"spendlog/internal/core"
)

// ErrNotFound is returned when no expense has the requested id.
var ErrNotFound = errors.New("Expense not found")

// Ports for expense storage adapters.
type (
	ExpenseReader interface {
		// List returns one page of expenses matching q, plus the total match count.
		List(ctx context.Context, q core.ListQuery) (core.ExpensePage, error)
		Get(ctx context.Context, id string) (core.Expense, error)
		// All returns every expense, newest first. Used for dashboard aggregation.
		All(ctx context.Context) ([]core.Expense, error)
	}

	ExpenseWriter interface {
		Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
		Update(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, error)
		Delete(ctx context.Context, id string) error
	}

	// Store is a complete expense backend.
	Store interface {
		ExpenseReader
		ExpenseWriter
		Ping(ctx context.Context) error
		Close() error
	}
)
