// Package training runs the model training and selection pipeline:
// candidate evaluation via k-fold cross-validation, winner selection by
// RMSE, full-dataset refit, and artifact serialization.
package training

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valoranet/valora/internal/logger"
	"github.com/valoranet/valora/internal/regress"
)

var (
	// ErrNoValidTrainingRows indicates the validity mask removed every row.
	// Fatal to a training run; an empty model is never produced.
	ErrNoValidTrainingRows = errors.New("no rows passed the training validity mask")

	// ErrAllCandidatesFailed indicates that no candidate family survived
	// cross-validation.
	ErrAllCandidatesFailed = errors.New("every candidate model failed evaluation")
)

// Options controls a training run.
type Options struct {
	Folds int
	Seed  int64
}

// DefaultOptions mirrors the production run: 5 shuffled folds, fixed seed.
func DefaultOptions() Options {
	return Options{Folds: 5, Seed: 42}
}

// candidate pairs a family name with its factory. Evaluation order is the
// slice order, which keeps logs and tie-breaks stable.
type candidate struct {
	name    string
	factory regress.Factory
}

func candidates() []candidate {
	return []candidate{
		{"gradient_boosting", func() regress.Regressor { return regress.NewGradientBoost() }},
		{"stochastic_boosting", func() regress.Regressor { return regress.NewStochasticBoost() }},
		{"random_forest", func() regress.Regressor { return regress.NewRandomForest() }},
	}
}

// ModelMetrics is the per-run evaluation record: every surviving
// candidate's metrics (not just the winner), any failures, and the selected
// model's name. Written once per run, read-only afterward.
type ModelMetrics struct {
	ModelName string                     `json:"model_name"`
	Metrics   map[string]regress.Metrics `json:"metrics"`
	Failures  map[string]string          `json:"failures,omitempty"`
	Rows      int                        `json:"rows"`
	TrainedAt time.Time                  `json:"trained_at"`
}

// Train evaluates every candidate with out-of-fold predictions, selects the
// lowest-RMSE family, and refits its full pipeline (preprocessing + model)
// on the entire dataset.
//
// A candidate that errors or panics during cross-validation is excluded
// from selection and recorded in the metrics; the run fails only when no
// candidate survives.
func Train(ctx context.Context, table regress.Table, y []float64, opts Options, log *logger.Logger) (*Bundle, *ModelMetrics, error) {
	if table.Rows() == 0 {
		return nil, nil, ErrNoValidTrainingRows
	}
	if opts.Folds < 2 {
		opts.Folds = DefaultOptions().Folds
	}

	metrics := &ModelMetrics{
		Metrics:   make(map[string]regress.Metrics),
		Failures:  make(map[string]string),
		Rows:      table.Rows(),
		TrainedAt: time.Now().UTC(),
	}

	bestName := ""
	bestRMSE := 0.0
	var bestFactory regress.Factory

	for _, cand := range candidates() {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("training cancelled: %w", err)
		}

		start := time.Now()
		preds, err := evaluateCandidate(table, y, opts, cand.factory)
		if err != nil {
			log.Warn("Candidate model failed, excluding from selection", map[string]interface{}{
				"model": cand.name,
				"error": err.Error(),
			})
			metrics.Failures[cand.name] = err.Error()
			continue
		}

		m, err := regress.Evaluate(y, preds)
		if err != nil {
			metrics.Failures[cand.name] = err.Error()
			continue
		}
		metrics.Metrics[cand.name] = m

		log.Info("Candidate model evaluated", map[string]interface{}{
			"model":       cand.name,
			"rmse":        m.RMSE,
			"r2":          m.R2,
			"mape":        m.MAPE,
			"duration_ms": time.Since(start).Milliseconds(),
		})

		if bestName == "" || m.RMSE < bestRMSE {
			bestName, bestRMSE, bestFactory = cand.name, m.RMSE, cand.factory
		}
	}

	if bestName == "" {
		return nil, nil, fmt.Errorf("%w: %v", ErrAllCandidatesFailed, metrics.Failures)
	}
	metrics.ModelName = bestName

	// Deliberate policy: evaluate on held-out folds, deploy a model refit
	// on everything.
	pre, err := regress.FitPreprocessor(table)
	if err != nil {
		return nil, nil, fmt.Errorf("final preprocessor fit failed: %w", err)
	}
	X, err := pre.Transform(table)
	if err != nil {
		return nil, nil, fmt.Errorf("final transform failed: %w", err)
	}
	model := bestFactory()
	if err := model.Fit(X, y); err != nil {
		return nil, nil, fmt.Errorf("final %s fit failed: %w", bestName, err)
	}

	bundle := &Bundle{
		SchemaVersion:   schemaVersion(),
		NumericCols:     table.NumericCols,
		CategoricalCols: table.CategoricalCols,
		Preprocessor:    pre,
		Model:           model,
		ModelName:       bestName,
		TrainedAt:       metrics.TrainedAt,
	}

	log.Info("Model selected", map[string]interface{}{
		"model": bestName,
		"rmse":  bestRMSE,
		"rows":  table.Rows(),
	})

	return bundle, metrics, nil
}

// evaluateCandidate runs cross-validation for one factory, converting
// panics inside a candidate's fit into ordinary errors so one family cannot
// take down the run.
func evaluateCandidate(table regress.Table, y []float64, opts Options, factory regress.Factory) (preds []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			preds = nil
			err = fmt.Errorf("candidate panicked: %v", r)
		}
	}()
	return regress.CrossValPredict(table, y, opts.Folds, opts.Seed, factory)
}
