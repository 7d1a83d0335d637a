// Package storage persists expenses in a local SQLite database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"spendlog/internal/core"
	"spendlog/internal/repository"

	_ "modernc.org/sqlite"
)

var _ repository.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	newID   func() string
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it. ":memory:" gives a private in-memory database.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers anyway; a single connection also keeps
	// in-memory databases alive across statements.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		newID:   uuid.NewString,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) List(ctx context.Context, q core.ListQuery) (core.ExpensePage, error) {
	q = q.Normalize()

	total, err := r.queries.CountExpenses(ctx, q.Search)
	if err != nil {
		return core.ExpensePage{}, fmt.Errorf("count expenses: %w", err)
	}

	rows, err := r.queries.ListExpenses(ctx, ListExpensesParams{
		Search:    q.Search,
		SortBy:    q.SortBy,
		Ascending: q.SortOrder == core.SortAsc,
		Limit:     q.PageSize,
		Offset:    q.Offset(),
	})
	if err != nil {
		return core.ExpensePage{}, fmt.Errorf("list expenses: %w", err)
	}

	items, err := toExpenses(rows)
	if err != nil {
		return core.ExpensePage{}, err
	}
	return core.ExpensePage{Items: items, Total: int(total)}, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, repository.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return toExpense(row)
}

// All returns every expense, newest first.
func (r *SQLiteRepository) All(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.AllExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all expenses: %w", err)
	}
	return toExpenses(rows)
}

func (r *SQLiteRepository) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	e := in.Expense(r.newID())

	row, err := r.queries.CreateExpense(ctx, fromExpense(e))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", row.ID,
		"title", row.Title,
		"amount_cents", row.AmountCents,
		"expense_date", row.ExpenseDate)

	return toExpense(row)
}

// Update applies patch inside a transaction so concurrent patches to the same
// row do not lose fields.
func (r *SQLiteRepository) Update(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, error) {
	if err := patch.Validate(); err != nil {
		return core.Expense{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	current, err := qtx.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, repository.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}

	existing, err := toExpense(current)
	if err != nil {
		return core.Expense{}, err
	}
	row, err := qtx.UpdateExpense(ctx, fromExpense(patch.Apply(existing)))
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit update: %w", err)
	}
	return toExpense(row)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	slog.DebugContext(ctx, "Expense deleted from SQLite", "id", id)
	return nil
}

func fromExpense(e core.Expense) ExpenseRow {
	return ExpenseRow{
		ID:          e.ID,
		Title:       e.Title,
		AmountCents: e.Amount.Cents,
		Category:    e.Category.String(),
		ExpenseDate: e.ExpenseDate.String(),
		Description: e.Description,
	}
}

func toExpense(row ExpenseRow) (core.Expense, error) {
	date, err := core.ParseDate(row.ExpenseDate)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s: %w", row.ID, err)
	}
	return core.Expense{
		ID:          row.ID,
		Title:       row.Title,
		Amount:      core.Money{Cents: row.AmountCents},
		Category:    core.Category(row.Category),
		ExpenseDate: date,
		Description: row.Description,
	}, nil
}

func toExpenses(rows []ExpenseRow) ([]core.Expense, error) {
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := toExpense(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
