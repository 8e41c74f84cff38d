package services

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/valoranet/valora/internal/logger"
	"github.com/valoranet/valora/internal/neighborhood"
	"github.com/valoranet/valora/internal/training"
)

// ErrModelNotLoaded indicates no trained model is available yet.
var ErrModelNotLoaded = errors.New("no trained model loaded")

// modelState groups the artifacts that must be observed together: the
// trained bundle, its metrics, and the neighborhood snapshot computed from
// the same training run.
type modelState struct {
	bundle   *training.Bundle
	metrics  *training.ModelMetrics
	snapshot *neighborhood.Snapshot
}

// ModelStore holds the currently served model artifacts behind an atomic
// pointer. Readers never block; a retrain swaps in the new state in one
// step so a request sees either the old artifacts or the new ones, never a
// mix.
type ModelStore struct {
	state atomic.Pointer[modelState]
	log   *logger.Logger
}

// NewModelStore creates an empty ModelStore.
func NewModelStore(log *logger.Logger) *ModelStore {
	return &ModelStore{log: log}
}

// LoadFromDisk reads the model artifacts from the given paths and installs
// them as the served state. A missing metrics or snapshot file is tolerated;
// a missing or unreadable model bundle is not.
func (s *ModelStore) LoadFromDisk(modelPath, metricsPath, snapshotPath string) error {
	bundle, err := training.LoadBundle(modelPath)
	if err != nil {
		return fmt.Errorf("failed to load model bundle: %w", err)
	}

	state := &modelState{bundle: bundle}

	if metricsPath != "" {
		metrics, err := training.LoadMetrics(metricsPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				s.log.Warn("Failed to load model metrics", map[string]interface{}{
					"path":  metricsPath,
					"error": err.Error(),
				})
			}
		} else {
			state.metrics = metrics
		}
	}

	if snapshotPath != "" {
		snapshot, err := neighborhood.Load(snapshotPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				s.log.Warn("Failed to load neighborhood snapshot", map[string]interface{}{
					"path":  snapshotPath,
					"error": err.Error(),
				})
			}
		} else {
			state.snapshot = snapshot
		}
	}

	s.state.Store(state)

	s.log.Info("Model artifacts loaded", map[string]interface{}{
		"model":        bundle.ModelName,
		"trained_at":   bundle.TrainedAt,
		"has_metrics":  state.metrics != nil,
		"has_snapshot": state.snapshot != nil,
	})

	return nil
}

// Swap atomically replaces the served artifacts.
func (s *ModelStore) Swap(bundle *training.Bundle, metrics *training.ModelMetrics, snapshot *neighborhood.Snapshot) {
	s.state.Store(&modelState{
		bundle:   bundle,
		metrics:  metrics,
		snapshot: snapshot,
	})
}

// Bundle returns the currently served model bundle.
// Returns ErrModelNotLoaded if no model has been installed yet.
func (s *ModelStore) Bundle() (*training.Bundle, error) {
	state := s.state.Load()
	if state == nil || state.bundle == nil {
		return nil, ErrModelNotLoaded
	}
	return state.bundle, nil
}

// Metrics returns the metrics of the currently served model.
// Returns ErrModelNotLoaded if no model or no metrics are available.
func (s *ModelStore) Metrics() (*training.ModelMetrics, error) {
	state := s.state.Load()
	if state == nil || state.metrics == nil {
		return nil, ErrModelNotLoaded
	}
	return state.metrics, nil
}

// Snapshot returns the neighborhood snapshot of the currently served model.
// Returns ErrModelNotLoaded if no model or no snapshot is available.
func (s *ModelStore) Snapshot() (*neighborhood.Snapshot, error) {
	state := s.state.Load()
	if state == nil || state.snapshot == nil {
		return nil, ErrModelNotLoaded
	}
	return state.snapshot, nil
}

// Ready reports whether a model is installed and ready to serve.
func (s *ModelStore) Ready() bool {
	state := s.state.Load()
	return state != nil && state.bundle != nil
}
