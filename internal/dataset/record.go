// Package dataset defines the property record the valuation pipelines
// operate on, the repair step that turns raw scraped rows into usable
// records, and the validity mask applied before training.
package dataset

import (
	"database/sql"

	"github.com/valoranet/valora/internal/cleaning"
)

// PropertyRecord is one property's attributes, raw or enriched. It is
// constructed from a data source row (batch) or a single request (serving),
// enriched in place by successive pipeline stages, and finally consumed by
// the model's predict operation. Nullable fields use pointers so a missing
// value is distinguishable from a zero.
type PropertyRecord struct {
	ID          int64
	Type        *string
	Currency    *string
	Price       *float64
	Description *string
	Comuna      *string
	Region      *string
	UsableArea  *float64
	TotalArea   *float64
	Bedrooms    *float64
	Bathrooms   *float64
	Parking     *float64
	Age         *float64
	Lat         *float64
	Lon         *float64

	// Derived geospatial proximity features, filled by feature assembly.
	DistHigherEdKm *float64
	DistSchoolKm   *float64
	DistPoliceKm   *float64
	DistHealthKm   *float64
	DistMetroKm    *float64
}

// RawListing mirrors one row of the scraper's listings table. Numeric-ish
// columns arrive as text because the source data is dirty; the repair step
// extracts what it can.
type RawListing struct {
	ID          int64           `db:"id"`
	Currency    sql.NullString  `db:"divisa"`
	Price       sql.NullFloat64 `db:"precio"`
	Description sql.NullString  `db:"desc"`
	Type        sql.NullString  `db:"tipo"`
	Comuna      sql.NullString  `db:"comuna"`
	TotalArea   sql.NullString  `db:"superficie_total"`
	UsableArea  sql.NullString  `db:"superficie_util"`
	Bedrooms    sql.NullString  `db:"dormitorios"`
	Bathrooms   sql.NullString  `db:"banos"`
	Parking     sql.NullString  `db:"estacionamientos"`
	Age         sql.NullString  `db:"antiguedad"`
	Lat         sql.NullFloat64 `db:"latitud"`
	Lon         sql.NullFloat64 `db:"longitud"`
}

// Repair turns a raw listing into a PropertyRecord: text fields have null
// tokens canonicalized, numeric fields are extracted from their loose string
// forms, bedroom and parking counts are backfilled from the description when
// absent, and construction years in the age column are converted to ages.
func Repair(raw RawListing, referenceYear int) PropertyRecord {
	rec := PropertyRecord{
		ID:          raw.ID,
		Currency:    cleanText(raw.Currency),
		Description: cleanText(raw.Description),
		Type:        cleanText(raw.Type),
		Comuna:      cleanText(raw.Comuna),
		Price:       nullFloat(raw.Price),
		Lat:         nullFloat(raw.Lat),
		Lon:         nullFloat(raw.Lon),
		UsableArea:  extractField(raw.UsableArea),
		TotalArea:   extractField(raw.TotalArea),
		Bedrooms:    extractField(raw.Bedrooms),
		Bathrooms:   extractField(raw.Bathrooms),
		Parking:     extractField(raw.Parking),
		Age:         extractField(raw.Age),
	}

	rec.Bedrooms = cleaning.FillFromDescription(rec.Bedrooms, rec.Description, cleaning.BedroomsFromDescription)
	rec.Parking = cleaning.FillFromDescription(rec.Parking, rec.Description, cleaning.ParkingFromDescription)

	if rec.Age != nil {
		age := cleaning.RepairAge(*rec.Age, referenceYear)
		rec.Age = &age
	}

	return rec
}

// ConvertPrice rewrites the record's price into UF according to its listed
// currency. Applied on the training path only; serving requests are already
// priced in UF.
func ConvertPrice(rec *PropertyRecord, ufValueCLP, usdToCLP float64) {
	if rec.Price == nil || rec.Currency == nil {
		return
	}
	converted := cleaning.ToUF(*rec.Price, *rec.Currency, ufValueCLP, usdToCLP)
	rec.Price = &converted
	uf := cleaning.CurrencyUF
	rec.Currency = &uf
}

func cleanText(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return cleaning.CanonicalizeNull(&s)
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func extractField(v sql.NullString) *float64 {
	if !v.Valid {
		return nil
	}
	if cleaning.IsNullToken(v.String) {
		return nil
	}
	f, ok := cleaning.ExtractNumeric(v.String)
	if !ok {
		return nil
	}
	return &f
}
