// Package core holds the entity model of the ledger: monetary values,
// accounts, conti, transactions, recurrence, and the snapshot
// projections the balance engine consumes.
//
// This file contains monetary amount parsing and helpers. Amounts are
// exact base-10 decimals (shopspring/decimal); binary floating point
// is never used for monetary math.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string into an exact amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Amounts are positive by convention; direction is encoded by the
// transaction type, so signed input is rejected. Returns
// ErrInvalidAmount for empty, signed, zero, or malformed input.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("-12.34") -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	dots := 0
	for _, r := range s {
		if r == '.' {
			dots++
			continue
		}
		if !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if dots > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ValidateAmount checks the positive-amount convention on transactions.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// FormatAmount renders an amount with two decimal places for display.
// Use the decimal value itself for calculations.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
