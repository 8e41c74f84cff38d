package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"
)

// R-tree tuning parameters, matched to the point counts of the facility
// datasets (a few hundred to a few thousand features per layer).
const (
	rtreeDimensions  = 2
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
	rtreeTolerance   = 1e-9
)

const earthRadiusKm = 6371.0

// ErrEmptyLayer indicates a distance query against a layer with no features.
// The engine never returns a sentinel distance for this case.
var ErrEmptyLayer = errors.New("facility layer has no features")

// degreesToKm converts a planar distance in degrees to kilometers.
//
// The operating region spans a narrow latitude band, so the planar degree
// distance works as a proxy for the great-circle distance. Persisted
// distance features and every trained model depend on this exact scale;
// replacing it with a geodesic formula shifts all five distance features
// and requires retraining from scratch.
func degreesToKm(deg float64) float64 {
	return deg * earthRadiusKm * math.Pi / 180
}

// facilityItem wraps a facility point for R-tree indexing.
type facilityItem struct {
	pt   Point
	rect rtreego.Rect
}

func (f *facilityItem) Bounds() *rtreego.Rect {
	return &f.rect
}

// PointLayer is an immutable, named collection of point facilities (schools,
// police stations, health centers) indexed for nearest-neighbor queries.
// It is built once at process start and is safe for unbounded concurrent
// reads afterwards; it is never mutated.
type PointLayer struct {
	name   string
	crs    string
	points []Point
	tree   *rtreego.Rtree
}

// NewPointLayer indexes the given facilities. All points must share one CRS.
func NewPointLayer(name string, points []Point) (*PointLayer, error) {
	crs := DefaultCRS
	if len(points) > 0 {
		crs = points[0].CRS
	}

	items := make([]rtreego.Spatial, 0, len(points))
	for _, pt := range points {
		if err := pt.checkCRS(crs); err != nil {
			return nil, fmt.Errorf("layer %q: %w", name, err)
		}
		loc := rtreego.Point{pt.Lon, pt.Lat}
		items = append(items, &facilityItem{pt: pt, rect: *loc.ToRect(rtreeTolerance)})
	}

	return &PointLayer{
		name:   name,
		crs:    crs,
		points: points,
		tree:   rtreego.NewTree(rtreeDimensions, rtreeMinChildren, rtreeMaxChildren, items...),
	}, nil
}

// Name returns the layer's category name.
func (l *PointLayer) Name() string { return l.name }

// Len returns the number of indexed facilities.
func (l *PointLayer) Len() int { return len(l.points) }

// NearestDistanceKm returns the distance in kilometers from p to the closest
// facility in the layer. The R-tree finds the Euclidean nearest neighbor in
// planar degree space and the raw angular distance is scaled by Earth's mean
// radius. Deterministic for a fixed layer and query point.
func (l *PointLayer) NearestDistanceKm(p Point) (float64, error) {
	if l.Len() == 0 {
		return 0, fmt.Errorf("%w: %s", ErrEmptyLayer, l.name)
	}
	if err := p.checkCRS(l.crs); err != nil {
		return 0, err
	}

	nearest := l.tree.NearestNeighbor(rtreego.Point{p.Lon, p.Lat})
	item, ok := nearest.(*facilityItem)
	if !ok {
		return 0, fmt.Errorf("layer %q: unexpected index item %T", l.name, nearest)
	}

	deg := math.Hypot(p.Lon-item.pt.Lon, p.Lat-item.pt.Lat)
	return degreesToKm(deg), nil
}

// LineLayer is an immutable, named collection of polyline facilities
// (transit lines). The layer is small, so queries scan every feature
// instead of maintaining a segment index.
type LineLayer struct {
	name  string
	crs   string
	lines [][]Point
}

// NewLineLayer builds a layer from polylines. Degenerate lines (fewer than
// one vertex) are rejected; all vertices must share one CRS.
func NewLineLayer(name string, lines [][]Point) (*LineLayer, error) {
	crs := DefaultCRS
	if len(lines) > 0 && len(lines[0]) > 0 {
		crs = lines[0][0].CRS
	}

	for i, line := range lines {
		if len(line) == 0 {
			return nil, fmt.Errorf("layer %q: line %d has no vertices", name, i)
		}
		for _, pt := range line {
			if err := pt.checkCRS(crs); err != nil {
				return nil, fmt.Errorf("layer %q: %w", name, err)
			}
		}
	}

	return &LineLayer{name: name, crs: crs, lines: lines}, nil
}

// Name returns the layer's category name.
func (l *LineLayer) Name() string { return l.name }

// Len returns the number of polyline features.
func (l *LineLayer) Len() int { return len(l.lines) }

// NearestDistanceKm returns the distance in kilometers from p to the closest
// polyline in the layer, using the same degree-to-kilometer conversion as
// point layers.
func (l *LineLayer) NearestDistanceKm(p Point) (float64, error) {
	if l.Len() == 0 {
		return 0, fmt.Errorf("%w: %s", ErrEmptyLayer, l.name)
	}
	if err := p.checkCRS(l.crs); err != nil {
		return 0, err
	}

	min := math.Inf(1)
	for _, line := range l.lines {
		if d := pointToPolylineDeg(p, line); d < min {
			min = d
		}
	}
	return degreesToKm(min), nil
}

// pointToPolylineDeg returns the planar degree distance from p to the
// nearest point on the polyline.
func pointToPolylineDeg(p Point, line []Point) float64 {
	if len(line) == 1 {
		return math.Hypot(p.Lon-line[0].Lon, p.Lat-line[0].Lat)
	}
	min := math.Inf(1)
	for i := 0; i+1 < len(line); i++ {
		if d := pointToSegmentDeg(p, line[i], line[i+1]); d < min {
			min = d
		}
	}
	return min
}

// pointToSegmentDeg returns the planar degree distance from p to the segment
// a-b by projecting p onto the segment and clamping to its endpoints.
func pointToSegmentDeg(p, a, b Point) float64 {
	abx, aby := b.Lon-a.Lon, b.Lat-a.Lat
	apx, apy := p.Lon-a.Lon, p.Lat-a.Lat

	len2 := abx*abx + aby*aby
	if len2 == 0 {
		return math.Hypot(apx, apy)
	}

	t := (apx*abx + apy*aby) / len2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	cx := a.Lon + t*abx
	cy := a.Lat + t*aby
	return math.Hypot(p.Lon-cx, p.Lat-cy)
}
