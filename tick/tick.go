// Package tick converts between the integer tick prices used throughout
// book, dispatcher, and impact, and decimal display currency. Nothing
// upstream of this package ever touches decimal.Decimal: ticks cross the
// boundary only here and in the demo driver.
package tick

import "github.com/shopspring/decimal"

// ToDecimal converts priceTicks into a display price, given the currency
// value of a single tick (e.g. 0.01 for a market quoted in cents).
func ToDecimal(priceTicks int64, tickValue decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(priceTicks).Mul(tickValue)
}

// FromDecimal converts a display price back into ticks, rounding to the
// nearest whole tick. It is the inverse of ToDecimal and is lossy when
// price does not land on an exact tick boundary.
func FromDecimal(price decimal.Decimal, tickValue decimal.Decimal) int64 {
	if tickValue.IsZero() {
		return 0
	}
	return price.Div(tickValue).Round(0).IntPart()
}
