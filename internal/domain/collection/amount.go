package collection

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Tolerance is the largest discrepancy, in currency units, still treated as
// equality when declared amounts are compared against debt.
var Tolerance = decimal.NewFromFloat(0.01)

// currencyPlaces is the number of minor-unit digits amounts are rounded to
// for display and persistence.
const currencyPlaces = 2

var currencyPrefixes = []string{"S/.", "S/", "$", "USD", "PEN"}

// ParseAmount turns free operator input into a non-negative amount.
// Empty, non-numeric and negative input all yield zero; it never fails.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}
	for _, p := range currencyPrefixes {
		if strings.HasPrefix(strings.ToUpper(s), p) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}
	// A lone comma is read as the decimal separator ("12,50").
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Round rounds an amount to the currency minor unit.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(currencyPlaces)
}

// WithinTolerance reports whether a and b are equal within Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// FormatAmount renders an amount with two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(currencyPlaces)
}

func maxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
