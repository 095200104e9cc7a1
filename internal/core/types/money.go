// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// SplitUnits splits an amount into whole units and rounded sub-units
// (centimes). The fractional part is rounded half up to two decimals;
// 1.999 therefore carries into 2 units, 0 centimes.
func SplitUnits(amount Money) (whole int64, fraction int64) {
	whole = amount.IntPart()
	fraction = amount.Sub(decimal.NewFromInt(whole)).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if fraction >= 100 {
		whole++
		fraction -= 100
	}
	return whole, fraction
}
