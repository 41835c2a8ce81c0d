// Package core provides the subscription domain model and money helpers.
//
// Costs are carried as float64 for wire compatibility, but every rounding
// and aggregation goes through decimal arithmetic so results do not depend
// on summation order.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Round2 rounds x to two decimal places, half away from zero.
//
// Examples:
//
//	Round2(15.99)    -> 15.99
//	Round2(119.88/12) -> 9.99
//	Round2(0.125)    -> 0.13
func Round2(x float64) float64 {
	f, _ := decimal.NewFromFloat(x).Round(2).Float64()
	return f
}

// Sum adds values exactly and returns the unrounded total.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	f, _ := total.Float64()
	return f
}

// Mul multiplies exactly and returns the unrounded product.
func Mul(x, y float64) float64 {
	f, _ := decimal.NewFromFloat(x).Mul(decimal.NewFromFloat(y)).Float64()
	return f
}

// ParseAmount converts a decimal string to a non-negative amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and a
// leading minus sign, which is dropped: bank exports record debits as
// negative values.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("-15,99") -> 15.99, nil
//	ParseAmount("abc")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	} else {
		// thousands separators
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	f, _ := d.Abs().Float64()
	return f, nil
}
