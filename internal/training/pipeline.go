package training

import (
	"context"
	"errors"
	"fmt"

	"github.com/valoranet/valora/internal/dataset"
	"github.com/valoranet/valora/internal/features"
	"github.com/valoranet/valora/internal/geo"
	"github.com/valoranet/valora/internal/logger"
	"github.com/valoranet/valora/internal/neighborhood"
	"github.com/valoranet/valora/internal/regress"
)

// Pipeline is the batch training orchestration: repair and currency
// conversion happen upstream (dataset package); the pipeline enriches each
// record with geospatial features, applies the validity mask, trains and
// selects a model, and computes the neighborhood snapshot over the same
// masked records.
type Pipeline struct {
	assembler *features.Assembler
	opts      Options
	log       *logger.Logger
}

// NewPipeline builds a pipeline over the shared assembler.
func NewPipeline(assembler *features.Assembler, opts Options, log *logger.Logger) *Pipeline {
	return &Pipeline{assembler: assembler, opts: opts, log: log}
}

// Result is one successful training run's output.
type Result struct {
	Bundle   *Bundle
	Metrics  *ModelMetrics
	Snapshot *neighborhood.Snapshot

	// Row accounting for the run log.
	InputRows     int
	AssembledRows int
	MaskedRows    int
}

// Run executes the full pipeline over repaired records. Records that cannot
// be assembled (missing coordinates, point outside known regions, comuna
// not in the allow-list) are dropped with a warning; they carry no usable
// location signal. Returns ErrNoValidTrainingRows when the mask leaves
// nothing to train on.
func (p *Pipeline) Run(ctx context.Context, recs []dataset.PropertyRecord) (*Result, error) {
	type assembled struct {
		rec dataset.PropertyRecord
		vec features.Vector
	}

	rows := make([]assembled, 0, len(recs))
	dropped := 0
	for i := range recs {
		rec := recs[i]
		vec, err := p.assembler.Assemble(&rec)
		if err != nil {
			if errors.Is(err, features.ErrMissingCoordinates) ||
				errors.Is(err, features.ErrUnknownRegion) ||
				errors.Is(err, geo.ErrPointOutsideKnownRegions) ||
				errors.Is(err, geo.ErrInvalidCoordinate) {
				dropped++
				continue
			}
			return nil, fmt.Errorf("feature assembly failed on row %d: %w", i, err)
		}
		rows = append(rows, assembled{rec: rec, vec: vec})
	}
	if dropped > 0 {
		p.log.Warn("Dropped rows without usable location", map[string]interface{}{
			"dropped": dropped,
			"total":   len(recs),
		})
	}

	masked := make([]assembled, 0, len(rows))
	maskedRecs := make([]dataset.PropertyRecord, 0, len(rows))
	for _, row := range rows {
		if dataset.ValidForTraining(row.rec) {
			masked = append(masked, row)
			maskedRecs = append(maskedRecs, row.rec)
		}
	}
	if len(masked) == 0 {
		return nil, ErrNoValidTrainingRows
	}

	p.log.Info("Training dataset prepared", map[string]interface{}{
		"input_rows":     len(recs),
		"assembled_rows": len(rows),
		"masked_rows":    len(masked),
	})

	table := regress.Table{
		NumericCols:     features.NumericColumns,
		CategoricalCols: features.CategoricalColumns,
	}
	y := make([]float64, 0, len(masked))
	for _, row := range masked {
		if err := table.Append(row.vec.NumericValues(), row.vec.CategoricalValues()); err != nil {
			return nil, fmt.Errorf("failed to build training table: %w", err)
		}
		y = append(y, *row.rec.Price)
	}

	bundle, metrics, err := Train(ctx, table, y, p.opts, p.log)
	if err != nil {
		return nil, err
	}

	return &Result{
		Bundle:        bundle,
		Metrics:       metrics,
		Snapshot:      neighborhood.Compute(maskedRecs),
		InputRows:     len(recs),
		AssembledRows: len(rows),
		MaskedRows:    len(masked),
	}, nil
}
