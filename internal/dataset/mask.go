package dataset

// Plausible-range bounds for the training mask. Rows outside any range are
// scraper noise (0-bathroom listings, prices in the wrong unit) and never
// reach the model.
const (
	maxBedrooms  = 15.0
	maxBathrooms = 10.0
	maxArea      = 20000.0
	maxPriceUF   = 25000.0
)

// ValidForTraining reports whether the record passes the validity mask:
// bedrooms, bathrooms, both areas, and the UF price must all be present and
// strictly inside their plausible ranges.
func ValidForTraining(rec PropertyRecord) bool {
	return inRange(rec.Bedrooms, maxBedrooms) &&
		inRange(rec.Bathrooms, maxBathrooms) &&
		inRange(rec.TotalArea, maxArea) &&
		inRange(rec.UsableArea, maxArea) &&
		inRange(rec.Price, maxPriceUF)
}

func inRange(v *float64, max float64) bool {
	return v != nil && *v > 0 && *v < max
}

// ApplyMask returns the records that pass the validity mask, preserving
// input order.
func ApplyMask(recs []PropertyRecord) []PropertyRecord {
	out := make([]PropertyRecord, 0, len(recs))
	for _, rec := range recs {
		if ValidForTraining(rec) {
			out = append(out, rec)
		}
	}
	return out
}
