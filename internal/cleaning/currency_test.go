package cleaning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToUF(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		currency string
		want     float64
	}{
		{
			name:     "pesos divide by UF value",
			price:    39500000,
			currency: CurrencyCLP,
			want:     1000,
		},
		{
			name:     "dollars convert through pesos",
			price:    100000,
			currency: CurrencyUSD,
			want:     100000 * 930.0 / 39500.0,
		},
		{
			name:     "UF passes through",
			price:    4200,
			currency: CurrencyUF,
			want:     4200,
		},
		{
			name:     "unknown code passes through unconverted",
			price:    5000,
			currency: "EUR",
			want:     5000,
		},
		{
			name:     "zero price",
			price:    0,
			currency: CurrencyCLP,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToUF(tt.price, tt.currency, DefaultUFValueCLP, DefaultUSDToCLP)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestToUF_CustomRates(t *testing.T) {
	// 40000 CLP at a UF value of 40000 is exactly 1 UF.
	assert.InDelta(t, 1.0, ToUF(40000, CurrencyCLP, 40000, 900), 1e-12)
	// 100 USD at 900 CLP/USD and 45000 CLP/UF.
	assert.InDelta(t, 2.0, ToUF(100, CurrencyUSD, 45000, 900), 1e-12)
}
