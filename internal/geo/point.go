package geo

import (
	"errors"
	"fmt"
)

// DefaultCRS is the coordinate reference system all bundled layers ship in.
const DefaultCRS = "EPSG:4326"

var (
	// ErrInvalidCoordinate indicates a latitude or longitude outside the
	// valid WGS84 range.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrCRSMismatch indicates an attempt to measure or compare geometries
	// built in different coordinate reference systems.
	ErrCRSMismatch = errors.New("coordinate reference system mismatch")
)

// Point is an immutable (longitude, latitude) pair tagged with the CRS it
// was built in. Every geometry measured together must share one reference
// frame; mixing frames is reported as an error, never as silent math.
type Point struct {
	Lon float64
	Lat float64
	CRS string
}

// NewPoint builds a Point in the default CRS (EPSG:4326).
// Returns ErrInvalidCoordinate when lat is outside [-90, 90] or lon is
// outside [-180, 180]. The same constructor is used by the serving path and
// the batch path so that derived features stay identical between the two.
func NewPoint(lat, lon float64) (Point, error) {
	return NewPointCRS(lat, lon, DefaultCRS)
}

// NewPointCRS builds a Point in an explicit CRS. An empty crs falls back to
// the default.
func NewPointCRS(lat, lon float64, crs string) (Point, error) {
	if lat < -90 || lat > 90 {
		return Point{}, fmt.Errorf("%w: latitude must be between -90 and 90, got %f", ErrInvalidCoordinate, lat)
	}
	if lon < -180 || lon > 180 {
		return Point{}, fmt.Errorf("%w: longitude must be between -180 and 180, got %f", ErrInvalidCoordinate, lon)
	}
	if crs == "" {
		crs = DefaultCRS
	}
	return Point{Lon: lon, Lat: lat, CRS: crs}, nil
}

// checkCRS verifies that p shares the given reference frame.
func (p Point) checkCRS(crs string) error {
	if p.CRS != crs {
		return fmt.Errorf("%w: point is %s, layer is %s", ErrCRSMismatch, p.CRS, crs)
	}
	return nil
}
