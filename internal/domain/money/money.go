// Package money bridges decimal amounts and the binary floating point
// arithmetic the pricing rules are defined in.
//
// Amounts are stored and exchanged as decimal.Decimal, but intermediate
// products (price × quantity × rate) are evaluated in float64 and rounded
// from their exact binary value, ties to even. A total such as 36.915
// therefore rounds to 36.91, because its float64 value lies just below the
// midpoint.
package money

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is the number of fractional digits amounts are rounded to.
const Cents = 2

// Float returns d as the nearest float64.
func Float(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// FromFloat returns the shortest decimal that converts back to f exactly.
func FromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// Round rounds the exact binary value of f to places fractional digits,
// ties to even.
func Round(f float64, places int) decimal.Decimal {
	return decimal.RequireFromString(strconv.FormatFloat(f, 'f', places, 64))
}

// RoundFloat is Round returning the nearest float64 to the rounded value.
func RoundFloat(f float64, places int) float64 {
	return Float(Round(f, places))
}

// Format renders d as a float amount prints: the shortest digits that
// identify it, with at least one fractional digit ("32.1", "536.0").
func Format(d decimal.Decimal) string {
	s := strconv.FormatFloat(Float(d), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
