package decimal

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

// DefaultVATRate is the standard KSA VAT rate (15%)
var DefaultVATRate = decimal.RequireFromString("0.15")

// FromString parses decimal from string
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// FromJSON converts a decoded JSON number into a decimal.
// Accepts json.Number (decoder with UseNumber) and float64 (plain decoder).
func FromJSON(v interface{}) (decimal.Decimal, error) {
	switch n := v.(type) {
	case json.Number:
		return decimal.NewFromString(n.String())
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	default:
		return Zero, fmt.Errorf("not a number: %T", v)
	}
}

// IsNumber reports whether v is a decoded JSON number
func IsNumber(v interface{}) bool {
	switch v.(type) {
	case json.Number, float64, float32, int, int64:
		return true
	}
	return false
}

// CalculateVAT computes VAT amount: amount * rate, rounded to 2 places (halves away from zero)
func CalculateVAT(amount, rate decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(rate))
}

// Format renders the shortest decimal string form ("115", "17.25", "0.5")
func Format(d decimal.Decimal) string {
	return d.String()
}

// Round2 rounds to 2 decimal places
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// IsNonNegative returns true if decimal is >= zero
func IsNonNegative(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(Zero)
}
