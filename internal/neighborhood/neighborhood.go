// Package neighborhood computes per-comuna aggregate statistics over the
// cleaned dataset. Aggregates are recomputed per training run, cached as a
// snapshot in the serving process, and invalidated only when a retraining
// run completes.
package neighborhood

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/valoranet/valora/internal/dataset"
	"github.com/valoranet/valora/internal/textnorm"
)

// Row is one comuna's aggregate record. JSON field names match the
// historical metrics extract; avg_price_uf is a median despite the name,
// which is robust to listing-price outliers.
type Row struct {
	Comuna         string  `json:"comuna"`
	MedianPriceUF  float64 `json:"avg_price_uf"`
	MeanUsableArea float64 `json:"superficie"`
	Count          int     `json:"n_properties"`
}

// Snapshot is a cached, immutable set of per-comuna aggregates keyed by
// normalized comuna name.
type Snapshot struct {
	Rows       map[string]Row `json:"rows"`
	ComputedAt time.Time      `json:"computed_at"`
}

// Compute aggregates the cleaned records by comuna: median UF price, mean
// usable area, and listing count. Comuna keys go through the same text
// normalizer as the serving path, so snapshot joins cannot miss on accents
// or casing.
func Compute(recs []dataset.PropertyRecord) *Snapshot {
	prices := make(map[string][]float64)
	areas := make(map[string][]float64)

	for _, rec := range recs {
		if rec.Comuna == nil || rec.Price == nil {
			continue
		}
		key := textnorm.Normalize(*rec.Comuna)
		if key == "" {
			continue
		}
		prices[key] = append(prices[key], *rec.Price)
		if rec.UsableArea != nil {
			areas[key] = append(areas[key], *rec.UsableArea)
		}
	}

	rows := make(map[string]Row, len(prices))
	for key, ps := range prices {
		sort.Float64s(ps)
		row := Row{
			Comuna:        key,
			MedianPriceUF: median(ps),
			Count:         len(ps),
		}
		if as := areas[key]; len(as) > 0 {
			row.MeanUsableArea = stat.Mean(as, nil)
		}
		rows[key] = row
	}

	return &Snapshot{Rows: rows, ComputedAt: time.Now().UTC()}
}

// median returns the sample median of a sorted, non-empty slice, averaging
// the two middle elements for even lengths.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Lookup returns the aggregate row for a comuna in any spelling the
// normalizer can reconcile.
func (s *Snapshot) Lookup(comuna string) (Row, bool) {
	row, ok := s.Rows[textnorm.Normalize(comuna)]
	return row, ok
}

// Save writes the snapshot as JSON.
func Save(path string, s *Snapshot) error {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal neighborhood snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write neighborhood snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read neighborhood snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal neighborhood snapshot: %w", err)
	}
	return &s, nil
}
