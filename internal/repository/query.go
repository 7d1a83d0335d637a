package repository

import (
	"sort"
	"strings"

	"spendlog/internal/core"
)

// Paginate filters, sorts and slices items in memory following q.
// Ties on the sort column are broken by id so pages never overlap.
func Paginate(items []core.Expense, q core.ListQuery) core.ExpensePage {
	q = q.Normalize()

	matched := make([]core.Expense, 0, len(items))
	for _, e := range items {
		if e.Matches(q.Search) {
			matched = append(matched, e)
		}
	}

	less := lessFunc(q.SortBy)
	desc := q.SortOrder == core.SortDesc
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if less(a, b) {
			return !desc
		}
		if less(b, a) {
			return desc
		}
		return a.ID < b.ID
	})

	page := core.ExpensePage{Items: []core.Expense{}, Total: len(matched)}
	start := q.Offset()
	if start < 0 || start >= len(matched) {
		return page
	}
	end := start + q.PageSize
	if end < start || end > len(matched) {
		end = len(matched)
	}
	page.Items = append(page.Items, matched[start:end]...)
	return page
}

func lessFunc(column string) func(a, b core.Expense) bool {
	switch column {
	case "title":
		return func(a, b core.Expense) bool {
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	case "amount":
		return func(a, b core.Expense) bool { return a.Amount.Cents < b.Amount.Cents }
	case "category":
		return func(a, b core.Expense) bool { return a.Category < b.Category }
	default:
		return func(a, b core.Expense) bool { return a.ExpenseDate.Before(b.ExpenseDate.Time) }
	}
}
