package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ring(t *testing.T, coords ...[2]float64) []Point {
	t.Helper()
	pts := make([]Point, 0, len(coords))
	for _, c := range coords {
		pts = append(pts, mustPoint(t, c[0], c[1]))
	}
	return pts
}

// square returns a closed ring covering [latMin,latMax] x [lonMin,lonMax].
func square(t *testing.T, latMin, latMax, lonMin, lonMax float64) []Point {
	t.Helper()
	return ring(t,
		[2]float64{latMin, lonMin},
		[2]float64{latMin, lonMax},
		[2]float64{latMax, lonMax},
		[2]float64{latMax, lonMin},
		[2]float64{latMin, lonMin},
	)
}

func TestRegionLayer_Resolve(t *testing.T) {
	layer, err := NewRegionLayer([]Region{
		NewRegion("providencia", "metropolitana", [][]Point{
			square(t, -33.45, -33.40, -70.65, -70.58),
		}),
		NewRegion("nunoa", "metropolitana", [][]Point{
			square(t, -33.48, -33.44, -70.63, -70.56),
		}),
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		lat     float64
		lon     float64
		want    string
		wantErr bool
	}{
		{
			name: "inside first region only",
			lat:  -33.41,
			lon:  -70.64,
			want: "providencia",
		},
		{
			name: "inside second region only",
			lat:  -33.47,
			lon:  -70.57,
			want: "nunoa",
		},
		{
			name: "in the overlap the first loaded region wins",
			lat:  -33.445,
			lon:  -70.60,
			want: "providencia",
		},
		{
			name:    "outside every region",
			lat:     -33.60,
			lon:     -70.90,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := layer.Resolve(mustPoint(t, tt.lat, tt.lon))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPointOutsideKnownRegions)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, reg.Name)
			assert.Equal(t, "metropolitana", reg.Admin)
		})
	}
}

func TestRegion_ContainsWithHole(t *testing.T) {
	// Outer square with an inner square hole. Even-odd rule: points inside
	// the hole are outside the region.
	region := NewRegion("donut", "", [][]Point{
		square(t, -34.0, -33.0, -71.0, -70.0),
		square(t, -33.7, -33.3, -70.7, -70.3),
	})
	layer, err := NewRegionLayer([]Region{region})
	require.NoError(t, err)

	_, err = layer.Resolve(mustPoint(t, -33.5, -70.5))
	assert.ErrorIs(t, err, ErrPointOutsideKnownRegions, "hole interior should not resolve")

	reg, err := layer.Resolve(mustPoint(t, -33.1, -70.1))
	require.NoError(t, err)
	assert.Equal(t, "donut", reg.Name)
}

func TestRegion_IgnoresDegenerateRings(t *testing.T) {
	region := NewRegion("broken", "", [][]Point{
		ring(t, [2]float64{-33.0, -70.0}, [2]float64{-33.1, -70.1}),
	})
	layer, err := NewRegionLayer([]Region{region})
	require.NoError(t, err)

	_, err = layer.Resolve(mustPoint(t, -33.05, -70.05))
	assert.ErrorIs(t, err, ErrPointOutsideKnownRegions)
}
