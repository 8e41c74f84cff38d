package geo

import (
	"encoding/json"
	"fmt"
	"os"
)

// GeoJSON layer files are the precomputed regional datasets the process
// loads once at startup. Only the geometry kinds each layer type needs are
// accepted; anything else in the file is a data error worth failing on.

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string          `json:"type"`
	Geometry   geometryJSON    `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

type geometryJSON struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

func readFeatureCollection(path string) (*featureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layer file: %w", err)
	}

	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal layer file %s: %w", path, err)
	}
	if fc.Type != "" && fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected FeatureCollection in %s, got %s", path, fc.Type)
	}
	return &fc, nil
}

func coordToPoint(coord [2]float64) (Point, error) {
	// GeoJSON order is [lon, lat].
	return NewPoint(coord[1], coord[0])
}

// LoadPointLayer reads a GeoJSON FeatureCollection of Point features and
// builds an indexed facility layer named after the given category.
func LoadPointLayer(name, path string) (*PointLayer, error) {
	fc, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	points := make([]Point, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry.Type != "Point" {
			return nil, fmt.Errorf("layer %q: feature %d: expected Point geometry, got %s", name, i, f.Geometry.Type)
		}
		var coord [2]float64
		if err := json.Unmarshal(f.Geometry.Coordinates, &coord); err != nil {
			return nil, fmt.Errorf("layer %q: feature %d: %w", name, i, err)
		}
		pt, err := coordToPoint(coord)
		if err != nil {
			return nil, fmt.Errorf("layer %q: feature %d: %w", name, i, err)
		}
		points = append(points, pt)
	}

	return NewPointLayer(name, points)
}

// LoadLineLayer reads a GeoJSON FeatureCollection of LineString or
// MultiLineString features into a polyline layer.
func LoadLineLayer(name, path string) (*LineLayer, error) {
	fc, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	var lines [][]Point
	for i, f := range fc.Features {
		switch f.Geometry.Type {
		case "LineString":
			var coords [][2]float64
			if err := json.Unmarshal(f.Geometry.Coordinates, &coords); err != nil {
				return nil, fmt.Errorf("layer %q: feature %d: %w", name, i, err)
			}
			line, err := coordsToLine(coords)
			if err != nil {
				return nil, fmt.Errorf("layer %q: feature %d: %w", name, i, err)
			}
			lines = append(lines, line)
		case "MultiLineString":
			var multi [][][2]float64
			if err := json.Unmarshal(f.Geometry.Coordinates, &multi); err != nil {
				return nil, fmt.Errorf("layer %q: feature %d: %w", name, i, err)
			}
			for _, coords := range multi {
				line, err := coordsToLine(coords)
				if err != nil {
					return nil, fmt.Errorf("layer %q: feature %d: %w", name, i, err)
				}
				lines = append(lines, line)
			}
		default:
			return nil, fmt.Errorf("layer %q: feature %d: expected LineString geometry, got %s", name, i, f.Geometry.Type)
		}
	}

	return NewLineLayer(name, lines)
}

func coordsToLine(coords [][2]float64) ([]Point, error) {
	line := make([]Point, 0, len(coords))
	for _, c := range coords {
		pt, err := coordToPoint(c)
		if err != nil {
			return nil, err
		}
		line = append(line, pt)
	}
	return line, nil
}

// regionProperties picks the administrative names out of a region feature.
// Property keys match the upstream boundary dataset.
type regionProperties struct {
	Comuna string `json:"Comuna"`
	Region string `json:"Region"`
}

// LoadRegionLayer reads a GeoJSON FeatureCollection of Polygon or
// MultiPolygon features tagged with Comuna/Region properties.
// Feature order in the file determines containment tie-break order.
func LoadRegionLayer(path string) (*RegionLayer, error) {
	fc, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}

	regions := make([]Region, 0, len(fc.Features))
	for i, f := range fc.Features {
		var props regionProperties
		if len(f.Properties) > 0 {
			if err := json.Unmarshal(f.Properties, &props); err != nil {
				return nil, fmt.Errorf("region feature %d: invalid properties: %w", i, err)
			}
		}
		if props.Comuna == "" {
			return nil, fmt.Errorf("region feature %d: missing Comuna property", i)
		}

		var rings [][]Point
		switch f.Geometry.Type {
		case "Polygon":
			var poly [][][2]float64
			if err := json.Unmarshal(f.Geometry.Coordinates, &poly); err != nil {
				return nil, fmt.Errorf("region feature %d: %w", i, err)
			}
			rings, err = polygonRings(poly)
			if err != nil {
				return nil, fmt.Errorf("region feature %d: %w", i, err)
			}
		case "MultiPolygon":
			var multi [][][][2]float64
			if err := json.Unmarshal(f.Geometry.Coordinates, &multi); err != nil {
				return nil, fmt.Errorf("region feature %d: %w", i, err)
			}
			for _, poly := range multi {
				polyRings, err := polygonRings(poly)
				if err != nil {
					return nil, fmt.Errorf("region feature %d: %w", i, err)
				}
				rings = append(rings, polyRings...)
			}
		default:
			return nil, fmt.Errorf("region feature %d: expected Polygon geometry, got %s", i, f.Geometry.Type)
		}

		regions = append(regions, NewRegion(props.Comuna, props.Region, rings))
	}

	return NewRegionLayer(regions)
}

func polygonRings(poly [][][2]float64) ([][]Point, error) {
	rings := make([][]Point, 0, len(poly))
	for _, ring := range poly {
		pts, err := coordsToLine(ring)
		if err != nil {
			return nil, err
		}
		rings = append(rings, pts)
	}
	return rings, nil
}
