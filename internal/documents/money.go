package documents

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ecoserv/ecoserv/internal/billing"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// Money formats amount with the currency symbol and thousands separators,
// e.g. "S/ 1,180.00" or "US$ 250.50".
func Money(cur billing.Currency, amount float64) string {
	return cur.Symbol() + " " + printer.Sprintf("%.2f", billing.Round2(amount))
}

// Quantity drops trailing zeros from whole quantities.
func Quantity(q float64) string {
	if q == float64(int64(q)) {
		return printer.Sprintf("%d", int64(q))
	}
	return printer.Sprintf("%.2f", q)
}
