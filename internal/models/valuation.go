package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/valoranet/valora/internal/neighborhood"
)

// Valuation is the result of running the pricing model against one property.
// Distances are in kilometers from the property to the nearest facility of
// each layer. Neighborhood carries the comuna's cached aggregates when the
// snapshot has a row for it.
type Valuation struct {
	PriceUF float64

	Comuna string
	Region string

	DistHigherEdKm float64
	DistSchoolKm   float64
	DistPoliceKm   float64
	DistHealthKm   float64
	DistMetroKm    float64

	Neighborhood *neighborhood.Row

	ModelName   string
	PredictedAt time.Time
}

// PredictionRecord is one row of the prediction audit table. Every served
// valuation is persisted best-effort so model behavior can be reviewed later.
type PredictionRecord struct {
	ID          uuid.UUID
	RequestID   string
	Comuna      string
	Region      string
	Lat         float64
	Lon         float64
	UsableArea  *float64
	TotalArea   *float64
	Bedrooms    *float64
	Bathrooms   *float64
	PriceUF     float64
	ModelName   string
	PredictedAt time.Time
}
