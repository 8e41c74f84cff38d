package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valoranet/valora/internal/dataset"
	"github.com/valoranet/valora/internal/logger"
	"github.com/valoranet/valora/internal/neighborhood"
	"github.com/valoranet/valora/internal/training"
)

// Training job statuses
const (
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Service-level errors
var (
	ErrTrainingInProgress  = errors.New("a training job is already running")
	ErrTrainingUnavailable = errors.New("no training data source configured")
	ErrJobNotFound         = errors.New("training job not found")
)

// TrainingJob describes one retraining run.
type TrainingJob struct {
	ID         uuid.UUID
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Error      string
	ModelName  string
	InputRows  int
	TrainRows  int
}

// ArtifactPaths holds the destinations for persisted training outputs.
type ArtifactPaths struct {
	ModelPath    string
	MetricsPath  string
	SnapshotPath string
}

// PriceNormalization holds the constants applied when converting listing
// prices to UF before training.
type PriceNormalization struct {
	UFValueCLP    float64
	USDToCLP      float64
	ReferenceYear int
}

// TrainingService defines the interface for async model retraining.
type TrainingService interface {
	// StartRetrain launches a retraining run in the background.
	// Returns ErrTrainingInProgress if a run is already active.
	// Returns ErrTrainingUnavailable if no listing source is configured.
	StartRetrain(ctx context.Context) (*TrainingJob, error)

	// JobStatus returns the state of a previously started job.
	// Returns ErrJobNotFound for unknown job IDs.
	JobStatus(id uuid.UUID) (*TrainingJob, error)
}

// Maximum number of job records retained for status polling. Finished jobs
// beyond this window are evicted oldest-first so the map cannot grow without
// bound over the process lifetime.
const maxJobHistory = 50

// trainingService is the concrete implementation of TrainingService. At most
// one retraining run is active at a time; concurrent submissions are rejected
// rather than queued.
type trainingService struct {
	source    dataset.ListingSource
	pipeline  *training.Pipeline
	store     *ModelStore
	artifacts ArtifactPaths
	norm      PriceNormalization
	log       *logger.Logger

	mu       sync.Mutex
	running  bool
	jobs     map[uuid.UUID]*TrainingJob
	jobOrder []uuid.UUID // insertion order, oldest first
}

// NewTrainingService creates a new instance of TrainingService.
// The listing source may be nil, in which case retraining is unavailable.
func NewTrainingService(source dataset.ListingSource, pipeline *training.Pipeline, store *ModelStore, artifacts ArtifactPaths, norm PriceNormalization, log *logger.Logger) TrainingService {
	return &trainingService{
		source:    source,
		pipeline:  pipeline,
		store:     store,
		artifacts: artifacts,
		norm:      norm,
		log:       log,
		jobs:      make(map[uuid.UUID]*TrainingJob),
	}
}

// StartRetrain registers a new job and runs the training pipeline in a
// background goroutine. The goroutine is detached from the request context
// so a closed HTTP connection does not abort the run.
func (s *trainingService) StartRetrain(_ context.Context) (*TrainingJob, error) {
	if s.source == nil {
		return nil, ErrTrainingUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil, ErrTrainingInProgress
	}

	job := &TrainingJob{
		ID:        uuid.New(),
		Status:    JobStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.jobs[job.ID] = job
	s.jobOrder = append(s.jobOrder, job.ID)
	s.pruneJobsLocked()
	s.running = true

	s.log.Info("Training job started", map[string]interface{}{
		"job_id": job.ID.String(),
	})

	go s.run(job.ID)

	snapshot := *job
	return &snapshot, nil
}

// JobStatus returns a copy of the job state so callers never observe
// concurrent mutation.
func (s *trainingService) JobStatus(id uuid.UUID) (*TrainingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}

	snapshot := *job
	return &snapshot, nil
}

// pruneJobsLocked evicts the oldest finished jobs once the history exceeds
// maxJobHistory. A still-running job is never evicted. Caller must hold mu.
func (s *trainingService) pruneJobsLocked() {
	for len(s.jobOrder) > maxJobHistory {
		evicted := false
		for i, id := range s.jobOrder {
			if job, ok := s.jobs[id]; ok && job.Status == JobStatusRunning {
				continue
			}
			delete(s.jobs, s.jobOrder[i])
			s.jobOrder = append(s.jobOrder[:i], s.jobOrder[i+1:]...)
			evicted = true
			break
		}
		if !evicted {
			return
		}
	}
}

// run executes one full retraining pass and records the outcome on the job.
func (s *trainingService) run(jobID uuid.UUID) {
	ctx := context.Background()

	result, err := s.train(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false

	job, ok := s.jobs[jobID]
	if !ok {
		return
	}

	now := time.Now().UTC()
	job.FinishedAt = &now

	if err != nil {
		job.Status = JobStatusFailed
		job.Error = err.Error()
		s.log.Error("Training job failed", err, map[string]interface{}{
			"job_id": jobID.String(),
		})
		return
	}

	job.Status = JobStatusCompleted
	job.ModelName = result.Bundle.ModelName
	job.InputRows = result.InputRows
	job.TrainRows = result.MaskedRows

	s.log.Info("Training job completed", map[string]interface{}{
		"job_id":     jobID.String(),
		"model":      job.ModelName,
		"input_rows": job.InputRows,
		"train_rows": job.TrainRows,
	})
}

// train fetches the listings, runs the pipeline, persists the artifacts, and
// swaps the served model. The swap happens only after every artifact has been
// written so a crash mid-persist never leaves the served model ahead of disk.
func (s *trainingService) train(ctx context.Context) (*training.Result, error) {
	raws, err := s.source.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listings: %w", err)
	}

	recs := make([]dataset.PropertyRecord, 0, len(raws))
	for _, raw := range raws {
		rec := dataset.Repair(raw, s.norm.ReferenceYear)
		dataset.ConvertPrice(&rec, s.norm.UFValueCLP, s.norm.USDToCLP)
		recs = append(recs, rec)
	}

	result, err := s.pipeline.Run(ctx, recs)
	if err != nil {
		return nil, err
	}

	if err := s.persistArtifacts(result); err != nil {
		return nil, err
	}

	s.store.Swap(result.Bundle, result.Metrics, result.Snapshot)

	return result, nil
}

func (s *trainingService) persistArtifacts(result *training.Result) error {
	if s.artifacts.ModelPath != "" {
		if err := training.SaveBundle(s.artifacts.ModelPath, result.Bundle); err != nil {
			return fmt.Errorf("failed to save model bundle: %w", err)
		}
	}
	if s.artifacts.MetricsPath != "" {
		if err := training.SaveMetrics(s.artifacts.MetricsPath, result.Metrics); err != nil {
			return fmt.Errorf("failed to save model metrics: %w", err)
		}
	}
	if s.artifacts.SnapshotPath != "" {
		if err := neighborhood.Save(s.artifacts.SnapshotPath, result.Snapshot); err != nil {
			return fmt.Errorf("failed to save neighborhood snapshot: %w", err)
		}
	}
	return nil
}
