package features

import (
	"fmt"

	"github.com/valoranet/valora/internal/geo"
)

// LayerPaths names the files every geospatial input is loaded from.
type LayerPaths struct {
	HigherEd  string
	Schools   string
	Police    string
	Health    string
	Metro     string
	Regions   string
	RegionMap string
}

// LoadAssembler reads every layer and the region mapping from disk and
// returns a ready Assembler.
func LoadAssembler(paths LayerPaths) (*Assembler, error) {
	higherEd, err := geo.LoadPointLayer("educacion_superior", paths.HigherEd)
	if err != nil {
		return nil, fmt.Errorf("higher education layer: %w", err)
	}
	schools, err := geo.LoadPointLayer("educacion_escolar", paths.Schools)
	if err != nil {
		return nil, fmt.Errorf("school layer: %w", err)
	}
	police, err := geo.LoadPointLayer("comisarias", paths.Police)
	if err != nil {
		return nil, fmt.Errorf("police layer: %w", err)
	}
	health, err := geo.LoadPointLayer("establecimientos_salud", paths.Health)
	if err != nil {
		return nil, fmt.Errorf("health layer: %w", err)
	}
	metro, err := geo.LoadLineLayer("lineas_metro", paths.Metro)
	if err != nil {
		return nil, fmt.Errorf("metro layer: %w", err)
	}
	regions, err := geo.LoadRegionLayer(paths.Regions)
	if err != nil {
		return nil, fmt.Errorf("region layer: %w", err)
	}
	regionMap, err := LoadRegionMap(paths.RegionMap)
	if err != nil {
		return nil, fmt.Errorf("region map: %w", err)
	}

	layers := Layers{
		HigherEd: higherEd,
		Schools:  schools,
		Police:   police,
		Health:   health,
		Metro:    metro,
		Regions:  regions,
	}
	return NewAssembler(layers, regionMap), nil
}
