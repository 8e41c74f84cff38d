package training

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/valoranet/valora/internal/features"
	"github.com/valoranet/valora/internal/regress"
)

// ErrSchemaMismatch indicates a prediction attempt against a bundle trained
// on a different feature schema.
var ErrSchemaMismatch = errors.New("feature schema does not match trained model")

func init() {
	// Concrete regressor types carried behind the Regressor interface must
	// be registered for gob round-trips.
	gob.Register(&regress.GradientBoost{})
	gob.Register(&regress.StochasticBoost{})
	gob.Register(&regress.RandomForest{})
}

// Bundle is the opaque trained-model artifact: the fitted preprocessing
// transform plus the selected regressor, bound to the exact feature-column
// contract it was trained on. Replaced wholesale on retraining, never
// mutated.
type Bundle struct {
	SchemaVersion   int
	NumericCols     []string
	CategoricalCols []string
	Preprocessor    *regress.Preprocessor
	Model           regress.Regressor
	ModelName       string
	TrainedAt       time.Time
}

func schemaVersion() int { return features.SchemaVersion }

// Predict runs one assembled feature vector through the bundle. Returns
// ErrSchemaMismatch when the current feature schema differs from the one
// the bundle was trained on: no implicit compatibility is assumed across
// schema changes.
func (b *Bundle) Predict(v features.Vector) (float64, error) {
	if err := b.checkSchema(); err != nil {
		return 0, err
	}

	table := regress.Table{
		NumericCols:     b.NumericCols,
		CategoricalCols: b.CategoricalCols,
	}
	if err := table.Append(v.NumericValues(), v.CategoricalValues()); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}

	X, err := b.Preprocessor.Transform(table)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	preds, err := b.Model.Predict(X)
	if err != nil {
		return 0, fmt.Errorf("model predict failed: %w", err)
	}
	return preds[0], nil
}

func (b *Bundle) checkSchema() error {
	if b.SchemaVersion != features.SchemaVersion {
		return fmt.Errorf("%w: bundle schema v%d, current v%d", ErrSchemaMismatch, b.SchemaVersion, features.SchemaVersion)
	}
	if len(b.NumericCols) != len(features.NumericColumns) || len(b.CategoricalCols) != len(features.CategoricalColumns) {
		return fmt.Errorf("%w: column counts differ", ErrSchemaMismatch)
	}
	for i, col := range features.NumericColumns {
		if b.NumericCols[i] != col {
			return fmt.Errorf("%w: numeric column %d is %q, expected %q", ErrSchemaMismatch, i, b.NumericCols[i], col)
		}
	}
	for i, col := range features.CategoricalColumns {
		if b.CategoricalCols[i] != col {
			return fmt.Errorf("%w: categorical column %d is %q, expected %q", ErrSchemaMismatch, i, b.CategoricalCols[i], col)
		}
	}
	return nil
}

// SaveBundle serializes the bundle with gob. The write goes through a temp
// file and rename so a concurrent reader never sees a partial artifact.
func SaveBundle(path string, b *Bundle) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create model artifact: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode model artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close model artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move model artifact into place: %w", err)
	}
	return nil
}

// LoadBundle deserializes a bundle. A loaded bundle produces bit-identical
// predictions to the one that was saved, for identical input.
func LoadBundle(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model artifact: %w", err)
	}
	defer f.Close()

	var b Bundle
	if err := gob.NewDecoder(f).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}
	return &b, nil
}

// SaveMetrics writes the per-candidate metrics record as JSON for external
// reporting.
func SaveMetrics(path string, m *ModelMetrics) error {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// LoadMetrics reads a metrics record written by SaveMetrics.
func LoadMetrics(path string) (*ModelMetrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics: %w", err)
	}
	var m ModelMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}
	return &m, nil
}
