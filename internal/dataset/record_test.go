package dataset

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valoranet/valora/internal/cleaning"
)

func strCol(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func floatCol(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func TestRepair(t *testing.T) {
	raw := RawListing{
		ID:          7,
		Currency:    strCol("$"),
		Price:       floatCol(185000000),
		Description: strCol("Casa de 3 dormitorios con 2 estacionamientos"),
		Type:        strCol("casa"),
		Comuna:      strCol("Ñuñoa"),
		TotalArea:   strCol("120 m2"),
		UsableArea:  strCol("95,5"),
		Bedrooms:    strCol("nan"),
		Bathrooms:   strCol("2"),
		Parking:     strCol(""),
		Age:         strCol("1990"),
		Lat:         floatCol(-33.456),
		Lon:         floatCol(-70.598),
	}

	rec := Repair(raw, 2025)

	assert.Equal(t, int64(7), rec.ID)

	require.NotNil(t, rec.Currency)
	assert.Equal(t, "$", *rec.Currency)

	require.NotNil(t, rec.Price)
	assert.Equal(t, 185000000.0, *rec.Price)

	require.NotNil(t, rec.TotalArea)
	assert.Equal(t, 120.0, *rec.TotalArea)

	require.NotNil(t, rec.UsableArea)
	assert.Equal(t, 95.5, *rec.UsableArea)

	// The bedrooms column was a null token, so the count comes from the
	// description text.
	require.NotNil(t, rec.Bedrooms)
	assert.Equal(t, 3.0, *rec.Bedrooms)

	require.NotNil(t, rec.Bathrooms)
	assert.Equal(t, 2.0, *rec.Bathrooms)

	// Empty parking cell backfilled from the description.
	require.NotNil(t, rec.Parking)
	assert.Equal(t, 2.0, *rec.Parking)

	// Construction year converted to an age.
	require.NotNil(t, rec.Age)
	assert.Equal(t, 35.0, *rec.Age)

	require.NotNil(t, rec.Comuna)
	assert.Equal(t, "Ñuñoa", *rec.Comuna)

	require.NotNil(t, rec.Lat)
	assert.Equal(t, -33.456, *rec.Lat)
}

func TestRepair_NullTokens(t *testing.T) {
	raw := RawListing{
		Currency:   strCol("null"),
		Comuna:     strCol("N/A"),
		Type:       strCol("-"),
		Bedrooms:   strCol("sin datos"),
		UsableArea: strCol("none"),
	}

	rec := Repair(raw, 2025)

	assert.Nil(t, rec.Currency)
	assert.Nil(t, rec.Comuna)
	assert.Nil(t, rec.Type)
	assert.Nil(t, rec.Bedrooms)
	assert.Nil(t, rec.UsableArea)
	assert.Nil(t, rec.Price)
	assert.Nil(t, rec.Lat)
	assert.Nil(t, rec.Lon)
}

func TestRepair_InvalidColumnsFromDB(t *testing.T) {
	raw := RawListing{
		Currency:  sql.NullString{},
		Price:     sql.NullFloat64{},
		Bedrooms:  sql.NullString{},
		Lat:       sql.NullFloat64{},
		TotalArea: sql.NullString{},
	}

	rec := Repair(raw, 2025)

	assert.Nil(t, rec.Currency)
	assert.Nil(t, rec.Price)
	assert.Nil(t, rec.Bedrooms)
	assert.Nil(t, rec.Lat)
	assert.Nil(t, rec.TotalArea)
}

func TestConvertPrice(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		currency string
		want     float64
	}{
		{
			name:     "pesos to UF",
			price:    39500000,
			currency: cleaning.CurrencyCLP,
			want:     1000,
		},
		{
			name:     "dollars to UF",
			price:    39500,
			currency: cleaning.CurrencyUSD,
			want:     930,
		},
		{
			name:     "UF stays",
			price:    2500,
			currency: cleaning.CurrencyUF,
			want:     2500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := tt.price
			currency := tt.currency
			rec := PropertyRecord{Price: &price, Currency: &currency}

			ConvertPrice(&rec, cleaning.DefaultUFValueCLP, cleaning.DefaultUSDToCLP)

			require.NotNil(t, rec.Price)
			assert.InDelta(t, tt.want, *rec.Price, 1e-9)
			require.NotNil(t, rec.Currency)
			assert.Equal(t, cleaning.CurrencyUF, *rec.Currency)
		})
	}
}

func TestConvertPrice_MissingFields(t *testing.T) {
	price := 1000.0
	currency := cleaning.CurrencyCLP

	noPrice := PropertyRecord{Currency: &currency}
	ConvertPrice(&noPrice, cleaning.DefaultUFValueCLP, cleaning.DefaultUSDToCLP)
	assert.Nil(t, noPrice.Price)

	noCurrency := PropertyRecord{Price: &price}
	ConvertPrice(&noCurrency, cleaning.DefaultUFValueCLP, cleaning.DefaultUSDToCLP)
	require.NotNil(t, noCurrency.Price)
	assert.Equal(t, 1000.0, *noCurrency.Price)
	assert.Nil(t, noCurrency.Currency)
}
