// Package features transforms a property record, whether a dataset row or a
// live query, into the fixed-schema feature vector the valuation model
// consumes.
package features

import (
	"errors"
	"fmt"
	"math"

	"github.com/valoranet/valora/internal/cleaning"
	"github.com/valoranet/valora/internal/dataset"
	"github.com/valoranet/valora/internal/geo"
	"github.com/valoranet/valora/internal/textnorm"
)

var (
	// ErrUnknownRegion indicates a comuna that resolved (or was supplied)
	// but is absent from the allow-list mapping.
	ErrUnknownRegion = errors.New("comuna not in region mapping")

	// ErrMissingCoordinates indicates a record without usable coordinates.
	ErrMissingCoordinates = errors.New("record has no coordinates")
)

// SchemaVersion identifies the feature-column contract below. A trained
// model is only valid against the schema version it was trained on; bump
// this whenever a column is added, removed, or renamed, and retrain.
const SchemaVersion = 1

// NumericColumns are the numeric feature columns, in the order
// Vector.NumericValues emits them. These names are the contract between
// feature assembly and the trained model.
var NumericColumns = []string{
	"superficie_util",
	"superficie_total",
	"dormitorios",
	"banos",
	"latitud",
	"longitud",
	"distancia_ed_superior_km",
	"distancia_ed_escolar_km",
	"distancia_comisaria_km",
	"distancia_est_salud_km",
	"distancia_metro_km",
}

// CategoricalColumns are the one-hot encoded feature columns.
var CategoricalColumns = []string{
	"divisa",
	"tipo",
	"comuna",
	"region",
}

// Vector is the fixed-schema feature vector. Missing numeric attributes are
// carried as NaN so the preprocessing imputer can see them; missing
// categorical attributes are empty strings.
type Vector struct {
	UsableArea float64
	TotalArea  float64
	Bedrooms   float64
	Bathrooms  float64
	Lat        float64
	Lon        float64

	DistHigherEdKm float64
	DistSchoolKm   float64
	DistPoliceKm   float64
	DistHealthKm   float64
	DistMetroKm    float64

	Currency string
	Type     string
	Comuna   string
	Region   string
}

// NumericValues returns the numeric features in NumericColumns order.
func (v Vector) NumericValues() []float64 {
	return []float64{
		v.UsableArea,
		v.TotalArea,
		v.Bedrooms,
		v.Bathrooms,
		v.Lat,
		v.Lon,
		v.DistHigherEdKm,
		v.DistSchoolKm,
		v.DistPoliceKm,
		v.DistHealthKm,
		v.DistMetroKm,
	}
}

// CategoricalValues returns the categorical features in CategoricalColumns
// order.
func (v Vector) CategoricalValues() []string {
	return []string{v.Currency, v.Type, v.Comuna, v.Region}
}

// Layers bundles the shared read-only geospatial inputs of feature
// assembly: the five facility layers and the administrative boundaries.
type Layers struct {
	HigherEd *geo.PointLayer
	Schools  *geo.PointLayer
	Police   *geo.PointLayer
	Health   *geo.PointLayer
	Metro    *geo.LineLayer
	Regions  *geo.RegionLayer
}

// Assembler derives the feature vector for one record against the shared
// layers and region mapping. Stateless and safe for concurrent use.
type Assembler struct {
	layers    Layers
	regionMap RegionMap
}

// NewAssembler builds an Assembler over the shared inputs.
func NewAssembler(layers Layers, regionMap RegionMap) *Assembler {
	return &Assembler{layers: layers, regionMap: regionMap}
}

// Assemble derives the feature vector for rec and writes the resolved
// comuna, region, and distances back onto the record.
//
// One GeoPoint is built from the coordinates and reused for the region
// resolution and all five distance lookups, so every feature sees the exact
// same floating-point coordinates.
func (a *Assembler) Assemble(rec *dataset.PropertyRecord) (Vector, error) {
	if rec.Lat == nil || rec.Lon == nil {
		return Vector{}, ErrMissingCoordinates
	}

	pt, err := geo.NewPoint(*rec.Lat, *rec.Lon)
	if err != nil {
		return Vector{}, err
	}

	// Prefer the caller-supplied comuna; resolve from the point only when
	// it is absent. Either way the name is normalized before the allow-list
	// lookup, using the same normalizer applied to the mapping keys.
	var comuna string
	if rec.Comuna != nil && *rec.Comuna != "" {
		comuna = textnorm.Normalize(*rec.Comuna)
	} else {
		region, err := a.layers.Regions.Resolve(pt)
		if err != nil {
			return Vector{}, err
		}
		comuna = textnorm.Normalize(region.Name)
	}

	adminRegion, ok := a.regionMap.Lookup(comuna)
	if !ok {
		return Vector{}, fmt.Errorf("%w: %q", ErrUnknownRegion, comuna)
	}

	distHigherEd, err := a.layers.HigherEd.NearestDistanceKm(pt)
	if err != nil {
		return Vector{}, err
	}
	distSchool, err := a.layers.Schools.NearestDistanceKm(pt)
	if err != nil {
		return Vector{}, err
	}
	distPolice, err := a.layers.Police.NearestDistanceKm(pt)
	if err != nil {
		return Vector{}, err
	}
	distHealth, err := a.layers.Health.NearestDistanceKm(pt)
	if err != nil {
		return Vector{}, err
	}
	distMetro, err := a.layers.Metro.NearestDistanceKm(pt)
	if err != nil {
		return Vector{}, err
	}

	rec.Comuna = &comuna
	rec.Region = &adminRegion
	rec.DistHigherEdKm = &distHigherEd
	rec.DistSchoolKm = &distSchool
	rec.DistPoliceKm = &distPolice
	rec.DistHealthKm = &distHealth
	rec.DistMetroKm = &distMetro

	v := Vector{
		UsableArea:     orNaN(rec.UsableArea),
		TotalArea:      orNaN(rec.TotalArea),
		Bedrooms:       orNaN(rec.Bedrooms),
		Bathrooms:      orNaN(rec.Bathrooms),
		Lat:            *rec.Lat,
		Lon:            *rec.Lon,
		DistHigherEdKm: distHigherEd,
		DistSchoolKm:   distSchool,
		DistPoliceKm:   distPolice,
		DistHealthKm:   distHealth,
		DistMetroKm:    distMetro,
		Currency:       cleaning.CurrencyUF,
		Type:           orEmpty(rec.Type),
		Comuna:         comuna,
		Region:         adminRegion,
	}
	return v, nil
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
