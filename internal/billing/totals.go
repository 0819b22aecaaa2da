// Package billing computes document totals.
//
// Amounts are float64 on the wire and in the domain types; arithmetic is done
// in decimal and rounded half away from zero to two places.
package billing

import "github.com/shopspring/decimal"

// TaxRate is the IGV rate applied to every document subtotal.
const TaxRate = 0.18

var taxRate = decimal.NewFromFloat(TaxRate)

// Line is the priced part of a document item.
type Line struct {
	Quantity  float64
	UnitPrice float64
	// Days multiplies the line for rentals; nil or zero counts as one day.
	Days *int
}

// Totals are the three money figures stored on a document header.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Compute returns subtotal, tax and total for lines. The input is not modified
// and an empty list yields zeros. Negative values are not rejected.
func Compute(lines []Line) Totals {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(lineAmount(l))
	}
	subtotal := sum.Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	return Totals{
		Subtotal: subtotal.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Total:    subtotal.Add(tax).InexactFloat64(),
	}
}

// LineAmount returns quantity x unit price x days rounded to two places.
func LineAmount(l Line) float64 {
	return lineAmount(l).Round(2).InexactFloat64()
}

func lineAmount(l Line) decimal.Decimal {
	return decimal.NewFromFloat(l.Quantity).
		Mul(decimal.NewFromFloat(l.UnitPrice)).
		Mul(decimal.NewFromInt(int64(EffectiveDays(l.Days))))
}

// EffectiveDays applies the one-day default.
func EffectiveDays(days *int) int {
	if days == nil || *days == 0 {
		return 1
	}
	return *days
}

// Round2 rounds an amount to cents.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
