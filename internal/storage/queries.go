package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a copy of q that runs its statements inside tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// ExpenseRow is one row of the expenses table.
type ExpenseRow struct {
	ID          string
	Title       string
	AmountCents int64
	Category    string
	ExpenseDate string
	Description string
}

const expenseColumns = `id, title, amount_cents, category, expense_date, description`

// orderColumns maps sortable keys to their ORDER BY expressions.
var orderColumns = map[string]string{
	"title":        "title COLLATE NOCASE",
	"amount":       "amount_cents",
	"category":     "category",
	"expense_date": "expense_date",
}

const createExpense = `INSERT INTO expenses (` + expenseColumns + `)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + expenseColumns

func (q *Queries) CreateExpense(ctx context.Context, arg ExpenseRow) (ExpenseRow, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.ID, arg.Title, arg.AmountCents, arg.Category, arg.ExpenseDate, arg.Description)
	return scanExpense(row)
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id string) (ExpenseRow, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const updateExpense = `UPDATE expenses
SET title = ?, amount_cents = ?, category = ?, expense_date = ?, description = ?,
    updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
WHERE id = ?
RETURNING ` + expenseColumns

func (q *Queries) UpdateExpense(ctx context.Context, arg ExpenseRow) (ExpenseRow, error) {
	row := q.db.QueryRowContext(ctx, updateExpense,
		arg.Title, arg.AmountCents, arg.Category, arg.ExpenseDate, arg.Description, arg.ID)
	return scanExpense(row)
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const searchFilter = ` WHERE (?1 = '' OR title LIKE ?2 ESCAPE '\' OR description LIKE ?2 ESCAPE '\')`

type ListExpensesParams struct {
	Search    string
	SortBy    string
	Ascending bool
	Limit     int
	Offset    int
}

func (q *Queries) ListExpenses(ctx context.Context, arg ListExpensesParams) ([]ExpenseRow, error) {
	order, ok := orderColumns[arg.SortBy]
	if !ok {
		return nil, fmt.Errorf("unsupported sort column %q", arg.SortBy)
	}
	dir := "DESC"
	if arg.Ascending {
		dir = "ASC"
	}
	query := `SELECT ` + expenseColumns + ` FROM expenses` + searchFilter +
		fmt.Sprintf(` ORDER BY %s %s, id ASC LIMIT ?3 OFFSET ?4`, order, dir)

	rows, err := q.db.QueryContext(ctx, query, arg.Search, likePattern(arg.Search), arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectExpenses(rows)
}

const countExpenses = `SELECT COUNT(*) FROM expenses` + searchFilter

func (q *Queries) CountExpenses(ctx context.Context, search string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countExpenses, search, likePattern(search)).Scan(&n)
	return n, err
}

const allExpenses = `SELECT ` + expenseColumns + ` FROM expenses ORDER BY expense_date DESC, id ASC`

func (q *Queries) AllExpenses(ctx context.Context) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, allExpenses)
	if err != nil {
		return nil, err
	}
	return collectExpenses(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(s rowScanner) (ExpenseRow, error) {
	var r ExpenseRow
	err := s.Scan(&r.ID, &r.Title, &r.AmountCents, &r.Category, &r.ExpenseDate, &r.Description)
	return r, err
}

func collectExpenses(rows *sql.Rows) ([]ExpenseRow, error) {
	defer rows.Close()
	var items []ExpenseRow
	for rows.Next() {
		r, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// likePattern turns a search term into a LIKE pattern matching it anywhere.
func likePattern(term string) string {
	if term == "" {
		return ""
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}
