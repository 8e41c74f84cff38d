package features

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/valoranet/valora/internal/textnorm"
)

// RegionMap is the static comuna-to-region allow-list. Keys are stored
// normalized; lookups normalize their input, so both sides of every
// comparison go through the same canonicalization.
//
// The map is deliberately an allow-list: a comuna absent from it is
// rejected outright rather than defaulted, because the model was trained
// only on the mapped set.
type RegionMap map[string]string

// LoadRegionMap reads the mapping from a JSON object file
// ({"comuna": "region", ...}), loaded once at startup.
func LoadRegionMap(path string) (RegionMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read region map: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal region map %s: %w", path, err)
	}

	return NewRegionMap(raw), nil
}

// NewRegionMap builds a RegionMap from raw pairs, normalizing the keys.
func NewRegionMap(raw map[string]string) RegionMap {
	m := make(RegionMap, len(raw))
	for comuna, region := range raw {
		m[textnorm.Normalize(comuna)] = region
	}
	return m
}

// Lookup returns the administrative region for a comuna name in any
// spelling the normalizer can reconcile.
func (m RegionMap) Lookup(comuna string) (string, bool) {
	region, ok := m[textnorm.Normalize(comuna)]
	return region, ok
}
