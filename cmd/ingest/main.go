package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/serjvanilla/go-overpass"
	"github.com/spf13/cobra"
)

// Default bounding box covering continental Chile (south, west, north, east).
const defaultBBox = "-56.0,-76.0,-17.0,-66.0"

var (
	endpoint string
	bbox     string
	outPath  string
	timeout  time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "valora-ingest",
	Short: "Fetch facility layers from OpenStreetMap via the Overpass API",
	Long: `Queries the Overpass API for the facility categories the valuation model
depends on and writes each result as a GeoJSON layer file.`,
}

var pointsCmd = &cobra.Command{
	Use:   "points [kind]",
	Short: "Fetch a point facility layer",
	Long: `Fetches one of the point facility categories and writes a GeoJSON
FeatureCollection of Point features.

Supported kinds: higher-ed, schools, police, health`,
	Args: cobra.ExactArgs(1),
	RunE: runPoints,
}

var metroCmd = &cobra.Command{
	Use:   "metro",
	Short: "Fetch the metro line layer",
	Long:  `Fetches subway lines and writes a GeoJSON FeatureCollection of LineString features.`,
	RunE:  runMetro,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "https://overpass-api.de/api/interpreter", "Overpass API endpoint")
	rootCmd.PersistentFlags().StringVar(&bbox, "bbox", defaultBBox, "Bounding box as south,west,north,east")
	rootCmd.PersistentFlags().StringVarP(&outPath, "out", "o", "", "Output GeoJSON file (required)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 120*time.Second, "HTTP timeout for Overpass queries")

	rootCmd.AddCommand(pointsCmd, metroCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// pointQueries maps a facility kind to its Overpass node filter.
var pointQueries = map[string]string{
	"higher-ed": `node["amenity"~"university|college"](%s);`,
	"schools":   `node["amenity"="school"](%s);`,
	"police":    `node["amenity"="police"](%s);`,
	"health":    `node["amenity"~"hospital|clinic|doctors"](%s);`,
}

func runPoints(cmd *cobra.Command, args []string) error {
	if outPath == "" {
		return fmt.Errorf("--out is required")
	}

	kind := args[0]
	filter, ok := pointQueries[kind]
	if !ok {
		return fmt.Errorf("unknown kind %q", kind)
	}

	query := fmt.Sprintf("[out:json];(%s);out body;", fmt.Sprintf(filter, bbox))

	result, err := queryOverpass(query)
	if err != nil {
		return err
	}

	features := make([]geoFeature, 0, len(result.Nodes))
	for _, node := range result.Nodes {
		features = append(features, geoFeature{
			Type: "Feature",
			Geometry: geoGeometry{
				Type:        "Point",
				Coordinates: []float64{node.Lon, node.Lat},
			},
			Properties: nameProperties(node.Tags),
		})
	}

	if err := writeCollection(outPath, features); err != nil {
		return err
	}

	fmt.Printf("Wrote %d %s features to %s\n", len(features), kind, outPath)
	return nil
}

func runMetro(cmd *cobra.Command, args []string) error {
	if outPath == "" {
		return fmt.Errorf("--out is required")
	}

	query := fmt.Sprintf(`[out:json];(way["railway"="subway"](%s););out body;>;out skel qt;`, bbox)

	result, err := queryOverpass(query)
	if err != nil {
		return err
	}

	var features []geoFeature
	for _, way := range result.Ways {
		coords := make([][]float64, 0, len(way.Nodes))
		for _, node := range way.Nodes {
			if node == nil {
				continue
			}
			coords = append(coords, []float64{node.Lon, node.Lat})
		}
		if len(coords) < 2 {
			continue
		}
		features = append(features, geoFeature{
			Type: "Feature",
			Geometry: geoGeometry{
				Type:        "LineString",
				Coordinates: coords,
			},
			Properties: nameProperties(way.Tags),
		})
	}

	if err := writeCollection(outPath, features); err != nil {
		return err
	}

	fmt.Printf("Wrote %d metro line features to %s\n", len(features), outPath)
	return nil
}

func queryOverpass(query string) (*overpass.Result, error) {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, 1, httpClient)

	result, err := client.Query(query)
	if err != nil {
		return nil, fmt.Errorf("overpass query failed: %w", err)
	}
	return &result, nil
}

// geoFeature and friends describe the minimal GeoJSON surface the layer
// loaders read back.
type geoFeature struct {
	Type       string            `json:"type"`
	Geometry   geoGeometry       `json:"geometry"`
	Properties map[string]string `json:"properties,omitempty"`
}

type geoGeometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

type geoCollection struct {
	Type     string       `json:"type"`
	Features []geoFeature `json:"features"`
}

func nameProperties(tags map[string]string) map[string]string {
	if name, ok := tags["name"]; ok {
		return map[string]string{"name": name}
	}
	return nil
}

func writeCollection(path string, features []geoFeature) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(geoCollection{Type: "FeatureCollection", Features: features}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode feature collection: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
