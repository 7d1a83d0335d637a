package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDateTruncatesTimestamps(t *testing.T) {
	d, err := ParseDate("2025-03-14T10:22:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2025-03-14" {
		t.Fatalf("expected 2025-03-14, got %s", d)
	}
	if _, err := ParseDate("14/03/2025"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"food", CategoryFood, true},
		{" Rent ", CategoryRent, true},
		{"", CategoryOther, true},
		{"GROCERIES", "", false},
	}
	for _, tc := range cases {
		got, err := ParseCategory(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidCategory) {
			t.Fatalf("%q expected ErrInvalidCategory, got %v", tc.in, err)
		}
	}
}

func TestExpenseInputValidate(t *testing.T) {
	good := ExpenseInput{
		Title:       "Groceries",
		Amount:      Money{Cents: 0},
		ExpenseDate: NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := good
	bad.Title = "   "
	if !errors.Is(bad.Validate(), ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle")
	}

	bad = good
	bad.Amount = Money{Cents: -1}
	if !errors.Is(bad.Validate(), ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount")
	}

	bad = good
	bad.ExpenseDate = Date{}
	if !errors.Is(bad.Validate(), ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate")
	}

	bad = good
	bad.Category = "SNACKS"
	if !errors.Is(bad.Validate(), ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory")
	}
}

func TestExpenseInputDefaults(t *testing.T) {
	e := ExpenseInput{Title: "  Taxi ", Amount: Money{Cents: 900}, ExpenseDate: NewDate(2025, 2, 3), Description: "  "}.Expense("x1")
	if e.Category != CategoryOther {
		t.Fatalf("expected OTHER, got %s", e.Category)
	}
	if e.Title != "Taxi" || e.Description != "" {
		t.Fatalf("expected trimmed fields, got %q / %q", e.Title, e.Description)
	}
}

func TestExpensePatchApply(t *testing.T) {
	base := Expense{ID: "1", Title: "Lunch", Amount: Money{Cents: 1200}, Category: CategoryFood, ExpenseDate: NewDate(2025, 5, 1)}
	title := " Dinner "
	amount := Money{Cents: 3000}
	p := ExpensePatch{Title: &title, Amount: &amount}
	if p.Empty() {
		t.Fatal("patch should not be empty")
	}
	got := p.Apply(base)
	if got.Title != "Dinner" || got.Amount.Cents != 3000 || got.Category != CategoryFood {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestExpenseMatches(t *testing.T) {
	e := Expense{Title: "Coffee beans", Description: "Roastery on Main"}
	for _, term := range []string{"coffee", "MAIN", "", "  bean "} {
		if !e.Matches(term) {
			t.Fatalf("expected %q to match", term)
		}
	}
	if e.Matches("tea") {
		t.Fatal("did not expect tea to match")
	}
}
