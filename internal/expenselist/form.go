package expenselist

import (
	"errors"
	"strings"

	"spendlog/internal/core"
)

// ErrInvalidForm aborts a submission before any remote call. It is never
// reported through the Notifier; field feedback belongs to the caller.
var ErrInvalidForm = errors.New("invalid expense form")

// Form is the raw create/edit form as typed by the user.
type Form struct {
	Title       string
	Amount      string
	Category    string
	ExpenseDate string
	Description string
}

// FormFromExpense fills a form for editing e.
func FormFromExpense(e core.Expense) Form {
	return Form{
		Title:       e.Title,
		Amount:      e.Amount.String(),
		Category:    e.Category.String(),
		ExpenseDate: e.ExpenseDate.String(),
		Description: e.Description,
	}
}

// Input validates the form and converts it to a create payload. The title
// must be non-blank, the amount a non-negative number and the date present.
func (f Form) Input() (core.ExpenseInput, error) {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return core.ExpenseInput{}, ErrInvalidForm
	}
	amount, err := core.ParseAmount(f.Amount)
	if err != nil {
		return core.ExpenseInput{}, ErrInvalidForm
	}
	if strings.TrimSpace(f.ExpenseDate) == "" {
		return core.ExpenseInput{}, ErrInvalidForm
	}
	date, err := core.ParseDate(f.ExpenseDate)
	if err != nil {
		return core.ExpenseInput{}, ErrInvalidForm
	}
	category, err := core.ParseCategory(f.Category)
	if err != nil {
		return core.ExpenseInput{}, ErrInvalidForm
	}
	return core.ExpenseInput{
		Title:       title,
		Amount:      amount,
		Category:    category,
		ExpenseDate: date,
		Description: strings.TrimSpace(f.Description),
	}, nil
}

// Patch validates the form like Input and sets every field of the patch.
func (f Form) Patch() (core.ExpensePatch, error) {
	in, err := f.Input()
	if err != nil {
		return core.ExpensePatch{}, err
	}
	return core.ExpensePatch{
		Title:       &in.Title,
		Amount:      &in.Amount,
		Category:    &in.Category,
		ExpenseDate: &in.ExpenseDate,
		Description: &in.Description,
	}, nil
}
