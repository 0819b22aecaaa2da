package billing

// Currency labels a document amount. No conversion is applied to stored totals.
type Currency string

const (
	CurrencyPEN Currency = "PEN"
	CurrencyUSD Currency = "USD"
)

// Currencies lists the accepted values in display order.
var Currencies = []Currency{CurrencyPEN, CurrencyUSD}

// Valid reports whether c is a known currency.
func (c Currency) Valid() bool {
	return c == CurrencyPEN || c == CurrencyUSD
}

// Symbol returns the printed symbol used on documents.
func (c Currency) Symbol() string {
	switch c {
	case CurrencyUSD:
		return "US$"
	default:
		return "S/"
	}
}
