package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVListingSource_FetchAll(t *testing.T) {
	content := `id,divisa,precio,desc,tipo,comuna,superficie_total,superficie_util,dormitorios,banos,estacionamientos,antiguedad,latitud,longitud
1,$,185000000,Casa de 3 dormitorios,casa,Ñuñoa,120 m2,95,3,2,1,1990,-33.456,-70.598
2,UF,4500,,departamento,Providencia,80,70,2,1,,,-33.426,-70.617
3,,,,,,,,,,,,,
`
	path := filepath.Join(t.TempDir(), "listings.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	source := NewCSVListingSource(path)
	rows, err := source.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, int64(1), first.ID)
	assert.True(t, first.Currency.Valid)
	assert.Equal(t, "$", first.Currency.String)
	assert.True(t, first.Price.Valid)
	assert.Equal(t, 185000000.0, first.Price.Float64)
	assert.True(t, first.Lat.Valid)
	assert.Equal(t, -33.456, first.Lat.Float64)
	assert.True(t, first.TotalArea.Valid)
	assert.Equal(t, "120 m2", first.TotalArea.String)

	second := rows[1]
	assert.False(t, second.Description.Valid, "empty cell becomes NULL")
	assert.False(t, second.Parking.Valid)
	assert.False(t, second.Age.Valid)
	assert.True(t, second.Price.Valid)
	assert.Equal(t, 4500.0, second.Price.Float64)

	third := rows[2]
	assert.False(t, third.Currency.Valid)
	assert.False(t, third.Price.Valid)
	assert.False(t, third.Lat.Valid)
}

func TestCSVListingSource_MissingFile(t *testing.T) {
	source := NewCSVListingSource(filepath.Join(t.TempDir(), "absent.csv"))
	_, err := source.FetchAll(context.Background())
	assert.Error(t, err)
}

func TestCSVListingSource_RoundTripThroughRepair(t *testing.T) {
	content := `id,divisa,precio,desc,tipo,comuna,superficie_total,superficie_util,dormitorios,banos,estacionamientos,antiguedad,latitud,longitud
10,$,79000000,Depto 2 dormitorios 1 estacionamiento,departamento,Macul,65 m2,"55,5",nan,1,,2015,-33.487,-70.599
`
	path := filepath.Join(t.TempDir(), "listings.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := NewCSVListingSource(path).FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rec := Repair(rows[0], 2025)

	require.NotNil(t, rec.Bedrooms)
	assert.Equal(t, 2.0, *rec.Bedrooms)
	require.NotNil(t, rec.Parking)
	assert.Equal(t, 1.0, *rec.Parking)
	require.NotNil(t, rec.UsableArea)
	assert.Equal(t, 55.5, *rec.UsableArea)
	require.NotNil(t, rec.Age)
	assert.Equal(t, 10.0, *rec.Age)
}
