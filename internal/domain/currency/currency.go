// Package currency formats integer minor-unit amounts as US dollar strings.
package currency

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// minorExponent is the power of ten between minor and major units (cents).
const minorExponent = -2

// Major converts minor units to an exact major-unit decimal.
func Major(minor int64) decimal.Decimal {
	return decimal.New(minor, minorExponent)
}

// FormatUSD renders minor units as "$#,##0.00"; negative amounts render as "-$1,234.56".
func FormatUSD(minor int64) string {
	amount := Major(minor)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	whole := amount.IntPart()
	cents := amount.Sub(decimal.NewFromInt(whole)).Shift(2).IntPart()
	return sign + "$" + humanize.Comma(whole) + "." + twoDigits(cents)
}

func twoDigits(n int64) string {
	const digits = "0123456789"
	return string([]byte{digits[n/10], digits[n%10]})
}
