package geo

import (
	"errors"
	"fmt"
)

// ErrPointOutsideKnownRegions indicates a containment query that matched no
// region polygon.
var ErrPointOutsideKnownRegions = errors.New("point outside known regions")

// Region is one administrative area: a name, its higher-level administrative
// name, and the polygon rings that bound it. Rings are evaluated with the
// even-odd rule, so interior holes are handled without special casing.
type Region struct {
	Name  string
	Admin string
	rings [][]Point
}

// NewRegion builds a region from its polygon rings.
func NewRegion(name, admin string, rings [][]Point) Region {
	return Region{Name: name, Admin: admin, rings: rings}
}

// contains reports whether p falls inside the region using ray casting
// across all rings (even-odd rule).
func (r Region) contains(p Point) bool {
	inside := false
	for _, ring := range r.rings {
		n := len(ring)
		if n < 3 {
			continue
		}
		j := n - 1
		for i := 0; i < n; i++ {
			vi, vj := ring[i], ring[j]
			if (vi.Lat > p.Lat) != (vj.Lat > p.Lat) &&
				p.Lon < (vj.Lon-vi.Lon)*(p.Lat-vi.Lat)/(vj.Lat-vi.Lat)+vi.Lon {
				inside = !inside
			}
			j = i
		}
	}
	return inside
}

// RegionLayer is an immutable collection of administrative region polygons.
// Loaded once at process start and shared read-only by every request.
type RegionLayer struct {
	crs     string
	regions []Region
}

// NewRegionLayer builds a layer from regions. All ring vertices must share
// one CRS.
func NewRegionLayer(regions []Region) (*RegionLayer, error) {
	crs := DefaultCRS
	if len(regions) > 0 && len(regions[0].rings) > 0 && len(regions[0].rings[0]) > 0 {
		crs = regions[0].rings[0][0].CRS
	}

	for _, reg := range regions {
		for _, ring := range reg.rings {
			for _, pt := range ring {
				if err := pt.checkCRS(crs); err != nil {
					return nil, fmt.Errorf("region %q: %w", reg.Name, err)
				}
			}
		}
	}

	return &RegionLayer{crs: crs, regions: regions}, nil
}

// Len returns the number of regions in the layer.
func (l *RegionLayer) Len() int { return len(l.regions) }

// Resolve returns the region containing p.
//
// Polygons are tested in the order they were loaded and the first match
// wins. Adjacent regions can both claim a point that sits exactly on a
// shared boundary; the first-match rule makes that tie-break an explicit,
// stable contract rather than an accident of iteration order.
// Returns ErrPointOutsideKnownRegions when no polygon contains p.
func (l *RegionLayer) Resolve(p Point) (Region, error) {
	if err := p.checkCRS(l.crs); err != nil {
		return Region{}, err
	}
	for _, reg := range l.regions {
		if reg.contains(p) {
			return reg, nil
		}
	}
	return Region{}, fmt.Errorf("%w: lat=%f lon=%f", ErrPointOutsideKnownRegions, p.Lat, p.Lon)
}
