package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of an expense date.
const DateLayout = "2006-01-02"

const (
	CategoryRent          Category = "RENT"
	CategoryFood          Category = "FOOD"
	CategoryTransport     Category = "TRANSPORT"
	CategoryUtilities     Category = "UTILITIES"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategoryHealth        Category = "HEALTH"
	CategoryShopping      Category = "SHOPPING"
	CategoryEducation     Category = "EDUCATION"
	CategoryInsurance     Category = "INSURANCE"
	CategoryOther         Category = "OTHER"
)

// Categories lists the closed category set in display order.
var Categories = []Category{
	CategoryRent,
	CategoryFood,
	CategoryTransport,
	CategoryUtilities,
	CategoryEntertainment,
	CategoryHealth,
	CategoryShopping,
	CategoryEducation,
	CategoryInsurance,
	CategoryOther,
}

type (
	Category string

	Date struct {
		time.Time
	}

	Expense struct {
		ID          string   `json:"id"`
		Title       string   `json:"title"`
		Amount      Money    `json:"amount"`
		Category    Category `json:"category"`
		ExpenseDate Date     `json:"expense_date"`
		Description string   `json:"description"`
	}

	// ExpenseInput is the payload of a create request.
	ExpenseInput struct {
		Title       string   `json:"title"`
		Amount      Money    `json:"amount"`
		Category    Category `json:"category,omitempty"`
		ExpenseDate Date     `json:"expense_date"`
		Description string   `json:"description"`
	}

	// ExpensePatch carries the fields of an update request; nil fields are left untouched.
	ExpensePatch struct {
		Title       *string   `json:"title,omitempty"`
		Amount      *Money    `json:"amount,omitempty"`
		Category    *Category `json:"category,omitempty"`
		ExpenseDate *Date     `json:"expense_date,omitempty"`
		Description *string   `json:"description,omitempty"`
	}
)

var (
	ErrInvalidTitle    = errors.New("title is required")
	ErrInvalidAmount   = errors.New("amount must be >= 0")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidDate     = errors.New("invalid expense_date")
	ErrTitleTooLong    = errors.New("title too long (max 200 characters)")
)

const maxTitleLength = 200

// ParseCategory upper-cases s and checks it against the closed set.
// A blank value maps to OTHER.
func ParseCategory(s string) (Category, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return CategoryOther, nil
	}
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Essential reports whether the category counts as essential spending on the dashboard.
func (c Category) Essential() bool {
	return c == CategoryRent || c == CategoryFood || c == CategoryUtilities
}

func (c Category) String() string {
	return string(c)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar day in local time.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate accepts YYYY-MM-DD, ignoring anything after the tenth character
// so full timestamps are truncated to their day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// MonthStart returns the first day of the date's month.
func (d Date) MonthStart() Date {
	return NewDate(d.Year(), int(d.Month()), 1)
}

func (in ExpenseInput) Validate() error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return ErrInvalidTitle
	}
	if len(title) > maxTitleLength {
		return ErrTitleTooLong
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if in.Category != "" && !in.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, in.Category)
	}
	return in.ExpenseDate.Validate()
}

// Normalize trims text fields and fills the category default.
func (in ExpenseInput) Normalize() ExpenseInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Category == "" {
		in.Category = CategoryOther
	}
	return in
}

// Expense builds the stored representation under the given id.
func (in ExpenseInput) Expense(id string) Expense {
	n := in.Normalize()
	return Expense{
		ID:          id,
		Title:       n.Title,
		Amount:      n.Amount,
		Category:    n.Category,
		ExpenseDate: n.ExpenseDate,
		Description: n.Description,
	}
}

func (p ExpensePatch) Validate() error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return ErrInvalidTitle
		}
		if len(title) > maxTitleLength {
			return ErrTitleTooLong
		}
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}
	if p.Category != nil && !p.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, *p.Category)
	}
	if p.ExpenseDate != nil {
		return p.ExpenseDate.Validate()
	}
	return nil
}

// Empty reports whether the patch changes nothing.
func (p ExpensePatch) Empty() bool {
	return p.Title == nil && p.Amount == nil && p.Category == nil && p.ExpenseDate == nil && p.Description == nil
}

// Apply returns e with the patch fields applied.
func (p ExpensePatch) Apply(e Expense) Expense {
	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.ExpenseDate != nil {
		e.ExpenseDate = *p.ExpenseDate
	}
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	return e
}

func (e Expense) Validate() error {
	return ExpenseInput{
		Title:       e.Title,
		Amount:      e.Amount,
		Category:    e.Category,
		ExpenseDate: e.ExpenseDate,
		Description: e.Description,
	}.Validate()
}

// Matches reports whether the expense title or description contains term, ignoring case.
func (e Expense) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Title), term) ||
		strings.Contains(strings.ToLower(e.Description), term)
}
