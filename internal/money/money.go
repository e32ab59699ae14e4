// Package money holds the single decimal-to-cents conversion boundary.
// Everywhere else in the engine, price is an int64 count of cents;
// decimal.Decimal only appears at the wire edge.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DecimalToCents converts a human-entered price to integer cents,
// rejecting any value with sub-cent precision rather than rounding it
// away silently.
func DecimalToCents(d decimal.Decimal) (int64, error) {
	scaled := d.Mul(hundred)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("price %s has sub-cent precision", d.String())
	}
	return scaled.IntPart(), nil
}

// CentsToDecimal is the inverse conversion, used when rendering prices
// back out over the wire.
func CentsToDecimal(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(hundred)
}
