package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPoint(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{
			name: "valid point in Santiago",
			lat:  -33.45,
			lon:  -70.66,
		},
		{
			name: "valid point at origin",
			lat:  0,
			lon:  0,
		},
		{
			name: "valid point at bounds",
			lat:  90,
			lon:  -180,
		},
		{
			name:    "latitude above range",
			lat:     90.1,
			lon:     0,
			wantErr: true,
		},
		{
			name:    "latitude below range",
			lat:     -91,
			lon:     0,
			wantErr: true,
		},
		{
			name:    "longitude above range",
			lat:     0,
			lon:     180.5,
			wantErr: true,
		},
		{
			name:    "longitude below range",
			lat:     0,
			lon:     -200,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPoint(tt.lat, tt.lon)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCoordinate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.lat, p.Lat)
			assert.Equal(t, tt.lon, p.Lon)
			assert.Equal(t, DefaultCRS, p.CRS)
		})
	}
}

func TestNewPointCRS(t *testing.T) {
	p, err := NewPointCRS(-33.45, -70.66, "EPSG:4326")
	require.NoError(t, err)
	assert.Equal(t, "EPSG:4326", p.CRS)
}

func TestPoint_CRSMismatch(t *testing.T) {
	a, err := NewPointCRS(-33.45, -70.66, "EPSG:4326")
	require.NoError(t, err)
	b, err := NewPointCRS(-33.46, -70.65, "EPSG:3857")
	require.NoError(t, err)

	_, err = NewPointLayer("test", []Point{a, b})
	assert.ErrorIs(t, err, ErrCRSMismatch)
}
