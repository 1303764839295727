package utils

import "github.com/shopspring/decimal"

// MoneyTolerance is the acceptance tolerance for monetary comparisons
// (balanced journals, paid-in-full checks).
var MoneyTolerance = decimal.NewFromFloat(0.01)

// RoundMoney rounds to 2 decimal places, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// CalculateLineAmount returns round(qty*rate, 2) for a document line.
func CalculateLineAmount(qty decimal.Decimal, unitRate decimal.Decimal) decimal.Decimal {
	return RoundMoney(qty.Mul(unitRate))
}

// CalculateTaxAmount returns round(subtotal*taxRate/100, 2).
// taxRate is a percentage (e.g. 5 for 5%).
func CalculateTaxAmount(subtotal decimal.Decimal, taxRate decimal.Decimal) decimal.Decimal {
	return RoundMoney(subtotal.Mul(taxRate).Div(decimal.NewFromInt(100)))
}

// AmountsEqual reports |a-b| <= MoneyTolerance.
func AmountsEqual(a decimal.Decimal, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(MoneyTolerance)
}
