package models

import (
	"math"

	"github.com/Rhymond/go-money"
	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// FormatMoney renders amount with the currency's symbol, grouping and fraction digits.
// Amounts whose minor units do not fit an int64 fall back to "CODE 123.45".
func FormatMoney(amount float64, currency string) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return ""
	}

	fraction := 2
	if c := money.GetCurrency(currency); c != nil {
		fraction = c.Fraction
	}
	if math.Abs(amount)*math.Pow10(fraction) >= math.MaxInt64 {
		return currency + " " + decimal.NewFromFloat(amount).StringFixed(int32(fraction))
	}

	return money.NewFromFloat(amount, currency).Display()
}

// FormatPercent renders a value already expressed in percent with two decimals
func FormatPercent(pct float64) string {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return ""
	}
	return decimal.NewFromFloat(pct).StringFixed(2) + "%"
}

// FractionToPercent converts 0.1234 into "12.34%"
func FractionToPercent(f float64) string {
	return FormatPercent(f * 100)
}

// NullableFloat maps NaN and infinities to null
func NullableFloat(f float64) null.Float {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

// IsKnownCurrency reports whether code is an ISO 4217 code go-money knows about
func IsKnownCurrency(code string) bool {
	return money.GetCurrency(code) != nil
}
