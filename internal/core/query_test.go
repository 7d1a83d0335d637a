package core

import (
	"net/url"
	"testing"
)

func TestListQueryNormalize(t *testing.T) {
	q := ListQuery{Search: "  rent ", SortBy: "id", SortOrder: "sideways", Page: 0, PageSize: 1000}.Normalize()
	if q.Search != "rent" {
		t.Fatalf("expected trimmed search, got %q", q.Search)
	}
	if q.SortBy != DefaultSortBy || q.SortOrder != SortDesc {
		t.Fatalf("expected default sort, got %s %s", q.SortBy, q.SortOrder)
	}
	if q.Page != 1 || q.PageSize != MaxPageSize {
		t.Fatalf("expected page 1 size %d, got %d %d", MaxPageSize, q.Page, q.PageSize)
	}
}

func TestListQueryValuesOmitsEmptySearch(t *testing.T) {
	v := DefaultListQuery().Values()
	if _, ok := v["search"]; ok {
		t.Fatal("search should be omitted when empty")
	}
	if v.Get("sort_by") != "expense_date" || v.Get("page_size") != "10" {
		t.Fatalf("unexpected values %v", v)
	}
}

func TestListQueryFromValues(t *testing.T) {
	q := ListQueryFromValues(url.Values{"search": {"taxi"}, "sort_by": {"amount"}, "sort_order": {"ASC"}, "page": {"3"}, "page_size": {"20"}})
	want := ListQuery{Search: "taxi", SortBy: "amount", SortOrder: SortAsc, Page: 3, PageSize: 20}
	if q != want {
		t.Fatalf("expected %+v, got %+v", want, q)
	}
	if q.Offset() != 40 {
		t.Fatalf("expected offset 40, got %d", q.Offset())
	}
}

func TestListQueryFromValues_HugePageKeepsOffsetInRange(t *testing.T) {
	q := ListQueryFromValues(url.Values{"page": {"1000000000000000000"}, "page_size": {"10"}})
	if q.Offset() < 0 {
		t.Fatalf("offset overflowed: page %d offset %d", q.Page, q.Offset())
	}
	if q.Offset()+q.PageSize < q.Offset() {
		t.Fatalf("offset+page_size overflowed for page %d", q.Page)
	}
}
