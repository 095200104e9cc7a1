package words

import "strings"

// currencyNames maps supported currency codes to their French
// major-unit name. The table is fixed; it mirrors the currencies the
// CRM lets an agency invoice in.
var currencyNames = map[string]string{
	"EUR":  "euro",
	"USD":  "dollar",
	"CAD":  "dollar canadien",
	"FCFA": "franc CFA",
	"GBP":  "livre sterling",
	"CHF":  "franc suisse",
}

// DefaultCurrencyName is used when the code is unknown.
// Silent fallback, not an error: generated documents default to euros.
const DefaultCurrencyName = "euro"

// CurrencyName returns the French name for a currency code.
func CurrencyName(code string) string {
	if name, ok := currencyNames[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return name
	}
	return DefaultCurrencyName
}
