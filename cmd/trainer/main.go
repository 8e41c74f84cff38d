package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/valoranet/valora/internal/cleaning"
	"github.com/valoranet/valora/internal/dataset"
	"github.com/valoranet/valora/internal/features"
	"github.com/valoranet/valora/internal/logger"
	"github.com/valoranet/valora/internal/neighborhood"
	"github.com/valoranet/valora/internal/training"
)

var (
	listingsDSN string
	listingsCSV string

	higherEdPath  string
	schoolsPath   string
	policePath    string
	healthPath    string
	metroPath     string
	regionsPath   string
	regionMapPath string

	modelOut    string
	metricsOut  string
	snapshotOut string

	ufValueCLP    float64
	usdToCLP      float64
	referenceYear int
	folds         int
	seed          int64

	env string
)

var rootCmd = &cobra.Command{
	Use:   "valora-trainer",
	Short: "Train the property valuation model from scraped listings",
	Long: `Reads raw listings from a database or CSV file, repairs and filters them,
assembles geospatial features, cross-validates the candidate model families,
and writes the winning model with its metrics and neighborhood aggregates.`,
	RunE: runTrain,
}

func init() {
	rootCmd.Flags().StringVar(&listingsDSN, "listings-dsn", "", "PostgreSQL DSN of the listings database")
	rootCmd.Flags().StringVar(&listingsCSV, "listings-csv", "", "CSV file with raw listings (alternative to --listings-dsn)")

	rootCmd.Flags().StringVar(&higherEdPath, "layer-higher-ed", "data/layers/educacion_superior.geojson", "Higher education point layer")
	rootCmd.Flags().StringVar(&schoolsPath, "layer-schools", "data/layers/educacion_escolar.geojson", "School point layer")
	rootCmd.Flags().StringVar(&policePath, "layer-police", "data/layers/comisarias.geojson", "Police station point layer")
	rootCmd.Flags().StringVar(&healthPath, "layer-health", "data/layers/establecimientos_salud.geojson", "Health facility point layer")
	rootCmd.Flags().StringVar(&metroPath, "layer-metro", "data/layers/lineas_metro.geojson", "Metro line layer")
	rootCmd.Flags().StringVar(&regionsPath, "layer-regions", "data/layers/comunas.geojson", "Comuna boundary layer")
	rootCmd.Flags().StringVar(&regionMapPath, "region-map", "data/region_map.json", "Comuna to region mapping")

	rootCmd.Flags().StringVarP(&modelOut, "model-out", "o", "artifacts/model.gob", "Output path for the model bundle")
	rootCmd.Flags().StringVar(&metricsOut, "metrics-out", "artifacts/model_metrics.json", "Output path for the metrics report")
	rootCmd.Flags().StringVar(&snapshotOut, "snapshot-out", "artifacts/neighborhoods.json", "Output path for the neighborhood snapshot")

	rootCmd.Flags().Float64Var(&ufValueCLP, "uf-value", cleaning.DefaultUFValueCLP, "UF value in CLP used for price conversion")
	rootCmd.Flags().Float64Var(&usdToCLP, "usd-rate", cleaning.DefaultUSDToCLP, "USD to CLP rate used for price conversion")
	rootCmd.Flags().IntVar(&referenceYear, "reference-year", cleaning.DefaultReferenceYear, "Year used to convert construction years to ages")
	rootCmd.Flags().IntVar(&folds, "folds", 5, "Number of cross-validation folds")
	rootCmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for fold shuffling and model fitting")

	rootCmd.Flags().StringVar(&env, "env", "development", "Logging environment (development or production)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runTrain(cmd *cobra.Command, args []string) error {
	log := logger.New(env)
	ctx := context.Background()

	source, cleanup, err := openSource()
	if err != nil {
		return err
	}
	defer cleanup()

	assembler, err := features.LoadAssembler(features.LayerPaths{
		HigherEd:  higherEdPath,
		Schools:   schoolsPath,
		Police:    policePath,
		Health:    healthPath,
		Metro:     metroPath,
		Regions:   regionsPath,
		RegionMap: regionMapPath,
	})
	if err != nil {
		return fmt.Errorf("failed to load geospatial layers: %w", err)
	}

	raws, err := source.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch listings: %w", err)
	}
	log.Info("Listings fetched", map[string]interface{}{
		"rows": len(raws),
	})

	recs := make([]dataset.PropertyRecord, 0, len(raws))
	for _, raw := range raws {
		rec := dataset.Repair(raw, referenceYear)
		dataset.ConvertPrice(&rec, ufValueCLP, usdToCLP)
		recs = append(recs, rec)
	}

	opts := training.Options{Folds: folds, Seed: seed}
	pipeline := training.NewPipeline(assembler, opts, log)

	result, err := pipeline.Run(ctx, recs)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	if err := training.SaveBundle(modelOut, result.Bundle); err != nil {
		return fmt.Errorf("failed to save model bundle: %w", err)
	}
	if err := training.SaveMetrics(metricsOut, result.Metrics); err != nil {
		return fmt.Errorf("failed to save metrics: %w", err)
	}
	if err := neighborhood.Save(snapshotOut, result.Snapshot); err != nil {
		return fmt.Errorf("failed to save neighborhood snapshot: %w", err)
	}

	log.Info("Training complete", map[string]interface{}{
		"model":      result.Bundle.ModelName,
		"input_rows": result.InputRows,
		"train_rows": result.MaskedRows,
		"model_out":  modelOut,
	})

	for name, m := range result.Metrics.Metrics {
		log.Info("Candidate metrics", map[string]interface{}{
			"candidate": name,
			"rmse":      m.RMSE,
			"r2":        m.R2,
			"mape":      m.MAPE,
		})
	}
	for name, reason := range result.Metrics.Failures {
		log.Warn("Candidate excluded", map[string]interface{}{
			"candidate": name,
			"reason":    reason,
		})
	}

	return nil
}

// openSource picks the listings source from the flags. Exactly one of the
// DSN and CSV flags must be set.
func openSource() (dataset.ListingSource, func(), error) {
	switch {
	case listingsDSN != "" && listingsCSV != "":
		return nil, nil, fmt.Errorf("--listings-dsn and --listings-csv are mutually exclusive")
	case listingsDSN != "":
		src, err := dataset.OpenSQLListingSource(listingsDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to listings database: %w", err)
		}
		return src, func() { src.Close() }, nil
	case listingsCSV != "":
		return dataset.NewCSVListingSource(listingsCSV), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("one of --listings-dsn or --listings-csv is required")
	}
}
