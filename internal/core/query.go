package core

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	SortAsc  = "asc"
	SortDesc = "desc"

	DefaultSortBy    = "expense_date"
	DefaultSortOrder = SortDesc
)

// SortableColumns is the whitelist of list sort keys.
var SortableColumns = []string{"title", "amount", "category", "expense_date"}

// PageSizes are the page sizes offered to the user.
var PageSizes = []int{10, 20, 50, 100}

// ListQuery selects one page of the expense collection.
type ListQuery struct {
	Search    string `json:"search,omitempty"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
}

// ExpensePage is one page of results plus the total matching count.
type ExpensePage struct {
	Items []Expense `json:"items"`
	Total int       `json:"total"`
}

// DefaultListQuery returns the first page sorted by date, newest first.
func DefaultListQuery() ListQuery {
	return ListQuery{
		SortBy:    DefaultSortBy,
		SortOrder: DefaultSortOrder,
		Page:      1,
		PageSize:  DefaultPageSize,
	}
}

// IsSortable reports whether column is in the sort whitelist.
func IsSortable(column string) bool {
	for _, c := range SortableColumns {
		if c == column {
			return true
		}
	}
	return false
}

// Normalize coerces out-of-range values to their defaults.
func (q ListQuery) Normalize() ListQuery {
	q.Search = strings.TrimSpace(q.Search)
	if !IsSortable(q.SortBy) {
		q.SortBy = DefaultSortBy
	}
	q.SortOrder = strings.ToLower(q.SortOrder)
	if q.SortOrder != SortAsc && q.SortOrder != SortDesc {
		q.SortOrder = DefaultSortOrder
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	// keep Offset and Offset+PageSize within int
	if maxPage := math.MaxInt / q.PageSize; q.Page > maxPage {
		q.Page = maxPage
	}
	return q
}

// Offset is the zero-based index of the first row on the page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// Values encodes the query as URL parameters; an empty search is omitted.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	v.Set("sort_by", q.SortBy)
	v.Set("sort_order", q.SortOrder)
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("page_size", strconv.Itoa(q.PageSize))
	return v
}

// ListQueryFromValues parses URL parameters, falling back to defaults for
// anything missing or malformed.
func ListQueryFromValues(v url.Values) ListQuery {
	q := DefaultListQuery()
	q.Search = v.Get("search")
	if s := v.Get("sort_by"); s != "" {
		q.SortBy = s
	}
	if s := v.Get("sort_order"); s != "" {
		q.SortOrder = s
	}
	if p, err := strconv.Atoi(v.Get("page")); err == nil {
		q.Page = p
	}
	if p, err := strconv.Atoi(v.Get("page_size")); err == nil {
		q.PageSize = p
	}
	return q.Normalize()
}

// Key renders the query tuple as a stable string, used for cache keys and
// for comparing queries.
func (q ListQuery) Key() string {
	return fmt.Sprintf("search=%s|sort_by=%s|sort_order=%s|page=%d|page_size=%d",
		q.Search, q.SortBy, q.SortOrder, q.Page, q.PageSize)
}
