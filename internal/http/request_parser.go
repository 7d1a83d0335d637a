// Package http provides HTTP server and handler implementations.
//
// This file decodes and validates expense request bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"spendlog/internal/core"
	"spendlog/internal/receipt"
)

const maxJSONBody = 1 << 20

// ErrBodyRequired is returned for an empty or non-JSON body.
var ErrBodyRequired = errors.New("JSON body required")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, err := core.ParseCategory(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// createExpenseRequest is the body of POST /expenses.
type createExpenseRequest struct {
	Title       *string     `json:"title" validate:"required"`
	Amount      *core.Money `json:"amount" validate:"required"`
	Category    string      `json:"category" validate:"omitempty,category"`
	ExpenseDate *core.Date  `json:"expense_date" validate:"required"`
	Description *string     `json:"description"`
}

// updateExpenseRequest is the body of PUT and PATCH /expenses/{id}; absent
// fields are left unchanged, but a present field must hold a value.
type updateExpenseRequest struct {
	Title       *string     `json:"title" validate:"omitnil,notblank"`
	Amount      *core.Money `json:"amount"`
	Category    *string     `json:"category" validate:"omitnil,notblank,category"`
	ExpenseDate *core.Date  `json:"expense_date"`
	Description *string     `json:"description"`
}

func (req createExpenseRequest) input() core.ExpenseInput {
	cat, _ := core.ParseCategory(req.Category)
	in := core.ExpenseInput{
		Title:       *req.Title,
		Amount:      *req.Amount,
		Category:    cat,
		ExpenseDate: *req.ExpenseDate,
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	return in
}

func (req updateExpenseRequest) patch() core.ExpensePatch {
	p := core.ExpensePatch{
		Title:       req.Title,
		Amount:      req.Amount,
		ExpenseDate: req.ExpenseDate,
		Description: req.Description,
	}
	if req.Category != nil {
		cat, _ := core.ParseCategory(*req.Category)
		p.Category = &cat
	}
	return p
}

// decodeJSON reads a JSON object from the request body into dst and runs
// struct validation. Domain decoding errors (bad amount or date) are
// returned as is so callers can map them to 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return ErrBodyRequired
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" || !strings.HasPrefix(trimmed, "{") {
		return ErrBodyRequired
	}

	if err := json.Unmarshal(body, dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr):
			return ErrBodyRequired
		case errors.As(err, &typeErr):
			return fmt.Errorf("invalid value for %s", typeErr.Field)
		default:
			return err
		}
	}
	return validationMessage(validate.Struct(dst))
}

// validationMessage reports the first failed rule in field order.
func validationMessage(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("Missing field: %s", fe.Field())
	case "notblank":
		if fe.Field() == "category" {
			return fmt.Errorf("%w: %q", core.ErrInvalidCategory, "")
		}
		return core.ErrInvalidTitle
	case "category":
		return fmt.Errorf("%w: %q", core.ErrInvalidCategory, fmt.Sprint(fe.Value()))
	default:
		return fmt.Errorf("invalid %s", fe.Field())
	}
}

// isClientError reports whether err describes a bad request rather than a
// server fault.
func isClientError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidTitle,
		core.ErrTitleTooLong,
		core.ErrInvalidAmount,
		core.ErrInvalidCategory,
		core.ErrInvalidDate,
		receipt.ErrUnsupportedFile,
		receipt.ErrFileTooLarge,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
