package cleaning

// Currency codes as they appear in the scraped listings.
const (
	CurrencyCLP = "$"
	CurrencyUSD = "US$"
	CurrencyUF  = "UF"
)

// Default conversion constants from the production pipeline.
const (
	DefaultUFValueCLP = 39500.0
	DefaultUSDToCLP   = 930.0
)

// ToUF converts a listed price into UF, the unit every model trains and
// predicts in. Chilean pesos divide by the UF value; US dollars convert to
// pesos at the fixed rate first. Any other currency code passes through
// unconverted on the assumption it is already UF.
func ToUF(price float64, currency string, ufValueCLP, usdToCLP float64) float64 {
	switch currency {
	case CurrencyCLP:
		return price / ufValueCLP
	case CurrencyUSD:
		return price * usdToCLP / ufValueCLP
	default:
		return price
	}
}
