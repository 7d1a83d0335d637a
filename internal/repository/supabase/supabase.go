// Package supabase stores expenses in a Supabase table through its PostgREST API.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	postgrest "github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"spendlog/internal/core"
	"spendlog/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Store talks to the expenses table of a Supabase project.
type Store struct {
	client *supabase.Client
	table  string
}

// row mirrors the table layout. Amounts are numeric(12,2) on the server.
type row struct {
	ID          string  `json:"id,omitempty"`
	Title       string  `json:"title"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	ExpenseDate string  `json:"expense_date"`
	Description string  `json:"description"`
}

// patchRow only carries the columns being changed.
type patchRow map[string]any

// New creates a client for the given project. No request is made until the
// first operation.
func New(url, key, table string) (*Store, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	if table == "" {
		table = "expenses"
	}
	return &Store{client: client, table: table}, nil
}

func (s *Store) List(ctx context.Context, q core.ListQuery) (core.ExpensePage, error) {
	if err := ctx.Err(); err != nil {
		return core.ExpensePage{}, err
	}
	q = q.Normalize()

	b := s.client.From(s.table).Select("*", "exact", false)
	if term := strings.TrimSpace(q.Search); term != "" {
		pattern := quoteFilterValue("*" + term + "*")
		b = b.Or(fmt.Sprintf("title.ilike.%s,description.ilike.%s", pattern, pattern), "")
	}
	asc := q.SortOrder == core.SortAsc
	b = b.Order(q.SortBy, &postgrest.OrderOpts{Ascending: asc}).
		Order("id", &postgrest.OrderOpts{Ascending: true})
	offset := q.Offset()
	b = b.Range(offset, offset+q.PageSize-1, "")

	data, count, err := b.Execute()
	if err != nil {
		return core.ExpensePage{}, fmt.Errorf("list expenses: %w", err)
	}
	items, err := decodeRows(data)
	if err != nil {
		return core.ExpensePage{}, err
	}
	return core.ExpensePage{Items: items, Total: int(count)}, nil
}

func (s *Store) Get(ctx context.Context, id string) (core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return core.Expense{}, err
	}
	data, _, err := s.client.From(s.table).Select("*", "", false).Eq("id", id).Execute()
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return firstRow(data)
}

// All returns every expense, newest first.
func (s *Store) All(ctx context.Context) ([]core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _, err := s.client.From(s.table).Select("*", "", false).
		Order("expense_date", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list all expenses: %w", err)
	}
	return decodeRows(data)
}

func (s *Store) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.Expense{}, err
	}
	e := in.Expense("")
	data, _, err := s.client.From(s.table).
		Insert(toRow(e), false, "", "representation", "").
		Execute()
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return firstRow(data)
}

func (s *Store) Update(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, error) {
	if err := patch.Validate(); err != nil {
		return core.Expense{}, err
	}
	if patch.Empty() {
		return s.Get(ctx, id)
	}
	if err := ctx.Err(); err != nil {
		return core.Expense{}, err
	}
	data, _, err := s.client.From(s.table).
		Update(toPatchRow(patch), "representation", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", id, err)
	}
	return firstRow(data)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, _, err := s.client.From(s.table).Delete("representation", "").Eq("id", id).Execute()
	if err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	var rows []row
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("decode delete response: %w", err)
	}
	if len(rows) == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Ping issues a HEAD request against the table.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := s.client.From(s.table).Select("id", "", true).Limit(1, "").Execute()
	if err != nil {
		return fmt.Errorf("ping supabase: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

func toRow(e core.Expense) row {
	return row{
		Title:       e.Title,
		Amount:      e.Amount.Float64(),
		Category:    e.Category.String(),
		ExpenseDate: e.ExpenseDate.String(),
		Description: e.Description,
	}
}

func toPatchRow(p core.ExpensePatch) patchRow {
	out := patchRow{}
	if p.Title != nil {
		out["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Amount != nil {
		out["amount"] = p.Amount.Float64()
	}
	if p.Category != nil {
		out["category"] = p.Category.String()
	}
	if p.ExpenseDate != nil {
		out["expense_date"] = p.ExpenseDate.String()
	}
	if p.Description != nil {
		out["description"] = strings.TrimSpace(*p.Description)
	}
	return out
}

func (r row) expense() (core.Expense, error) {
	date, err := core.ParseDate(r.ExpenseDate)
	if err != nil {
		return core.Expense{}, fmt.Errorf("row %s: %w", r.ID, err)
	}
	category, err := core.ParseCategory(r.Category)
	if err != nil {
		category = core.CategoryOther
	}
	return core.Expense{
		ID:          r.ID,
		Title:       strings.TrimSpace(r.Title),
		Amount:      core.MoneyFromFloat(r.Amount),
		Category:    category,
		ExpenseDate: date,
		Description: strings.TrimSpace(r.Description),
	}, nil
}

func decodeRows(data []byte) ([]core.Expense, error) {
	var rows []row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, r := range rows {
		e, err := r.expense()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func firstRow(data []byte) (core.Expense, error) {
	items, err := decodeRows(data)
	if err != nil {
		return core.Expense{}, err
	}
	if len(items) == 0 {
		return core.Expense{}, repository.ErrNotFound
	}
	return items[0], nil
}

// quoteFilterValue wraps values containing PostgREST reserved characters in
// double quotes.
func quoteFilterValue(v string) string {
	if !strings.ContainsAny(v, `,()":\`) {
		return v
	}
	return strconv.Quote(v)
}
