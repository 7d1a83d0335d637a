// Package receipt turns OCR text from a receipt into a monetary amount and
// checks uploaded receipt images before they are sent for recognition.
package receipt

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"spendlog/internal/core"
)

// number matches "1,234.56", "1234.56", "45" and similar. The comma-grouped
// alternative is tried first, so an ungrouped run of four or more digits only
// contributes its first three.
const number = `(\d{1,3}(?:,\d{3})*(?:\.\d{2})?|\d+(?:\.\d{2})?)`

// Rule names the pattern that produced an amount.
type Rule string

const (
	RuleNone             Rule = ""
	RuleTotal            Rule = "total"
	RuleGrandTotal       Rule = "grand_total"
	RuleAmountChargeable Rule = "amount_chargeable"
	RuleLabel            Rule = "label"
	RuleFallback         Rule = "fallback"
)

type labelPattern struct {
	rule Rule
	re   *regexp.Regexp
}

// Order matters: the first pattern yielding a positive amount wins, so a
// plain "Total" line is preferred over a later "Grand Total".
var labelPatterns = []labelPattern{
	{RuleTotal, regexp.MustCompile(`(?i)Total\s*[\s\S]*?` + number)},
	{RuleGrandTotal, regexp.MustCompile(`(?i)Grand\s*Total\s*[\s\S]*?` + number)},
	{RuleAmountChargeable, regexp.MustCompile(`(?i)Amount\s*Chargeable[\s\S]*?` + number)},
	{RuleLabel, regexp.MustCompile(`(?i)(?:Total|Amount)\s+` + number)},
}

var anyAmount = regexp.MustCompile(`\d{1,3}(?:,\d{3})*(?:\.\d{2})?`)

// Result is the outcome of ExtractAmount. Amount is zero when nothing qualified.
type Result struct {
	Amount decimal.Decimal
	Rule   Rule
}

// Found reports whether a positive amount was extracted.
func (r Result) Found() bool {
	return r.Amount.IsPositive()
}

// Money returns the amount rounded to cents.
func (r Result) Money() core.Money {
	return core.MoneyFromDecimal(r.Amount)
}

// FormString renders the amount for prefilling a form field: shortest decimal
// form when positive, empty otherwise.
func (r Result) FormString() string {
	if !r.Found() {
		return ""
	}
	return r.Amount.String()
}

// ExtractAmount finds the most plausible total in OCR text. It never fails.
func ExtractAmount(text string) Result {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return Result{Amount: decimal.Zero}
	}

	for _, p := range labelPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if amount, ok := parsePositive(m[1]); ok {
			return Result{Amount: amount, Rule: p.rule}
		}
	}

	if all := anyAmount.FindAllString(text, -1); len(all) > 0 {
		if amount, ok := parsePositive(all[len(all)-1]); ok {
			return Result{Amount: amount, Rule: RuleFallback}
		}
	}

	return Result{Amount: decimal.Zero}
}

// parsePositive skips numbers too large to be an amount, such as card or
// invoice numbers.
func parsePositive(raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil || !d.IsPositive() || d.GreaterThan(core.MaxAmount) {
		return decimal.Zero, false
	}
	return d, true
}
