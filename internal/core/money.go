// Package core provides money parsing and handling utilities.
//
// This file contains the Money type, which stores amounts as integer cents
// and travels on the wire as a plain JSON number.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a non-negative amount in cents.
type Money struct {
	Cents int64
}

// MaxAmount is the largest amount accepted from user input, in currency units.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// amountError is an ErrInvalidAmount with its own message.
type amountError struct {
	msg string
}

func (e amountError) Error() string {
	return e.msg
}

func (e amountError) Is(target error) bool {
	return target == ErrInvalidAmount
}

var (
	ErrMalformedAmount error = amountError{"amount is not a number"}
	ErrAmountTooLarge  error = amountError{"amount is too large"}
)

// ParseAmount converts a decimal string to Money with half-up rounding to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Zero is a
// valid amount; negative, malformed or out-of-range input is an
// ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34") -> 1234 cents
//	ParseAmount("12,34") -> 1234 cents
//	ParseAmount("12.345") -> 1235 cents
//	ParseAmount("0") -> 0 cents
func ParseAmount(s string) (Money, error) {
	m, err := parseMoney(s)
	if err != nil {
		return Money{}, err
	}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// parseMoney parses s without the sign check, so callers can report a
// negative amount separately from a malformed one.
func parseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrMalformedAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	return NewMoney(d)
}

// NewMoney rounds d to cents, rejecting amounts beyond MaxAmount either way.
func NewMoney(d decimal.Decimal) (Money, error) {
	if d.Abs().GreaterThan(MaxAmount) {
		return Money{}, ErrAmountTooLarge
	}
	return MoneyFromDecimal(d), nil
}

// MoneyFromDecimal rounds d to cents. d must be within MaxAmount; use
// NewMoney for untrusted values.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Shift(2).Round(0).IntPart()}
}

// MoneyFromFloat rounds f to cents.
func MoneyFromFloat(f float64) Money {
	return MoneyFromDecimal(decimal.NewFromFloat(f))
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float64 returns the amount as a float for charts and display.
// Use cents for calculations.
func (m Money) Float64() float64 {
	return m.Decimal().InexactFloat64()
}

// String formats the amount with two decimals, e.g. "12.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string, with the same
// separators as ParseAmount. The sign is left to Validate.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*m = Money{}
		return nil
	}
	parsed, err := parseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
