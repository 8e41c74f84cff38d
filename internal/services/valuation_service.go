package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valoranet/valora/internal/dataset"
	"github.com/valoranet/valora/internal/features"
	"github.com/valoranet/valora/internal/geo"
	"github.com/valoranet/valora/internal/logger"
	"github.com/valoranet/valora/internal/models"
	"github.com/valoranet/valora/internal/repository"
)

// Service-level errors
var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrUnknownLocation    = errors.New("location not covered by the model")
	ErrAuditUnavailable   = errors.New("prediction audit storage is not configured")
)

// ValuationService defines the interface for property valuation operations.
type ValuationService interface {
	// Predict runs the served model against one property record.
	// Returns ErrInvalidCoordinates if coordinates are out of valid range.
	// Returns ErrUnknownLocation if the point does not resolve to a covered comuna.
	// Returns ErrModelNotLoaded if no trained model is available.
	Predict(ctx context.Context, requestID string, rec dataset.PropertyRecord) (*models.Valuation, error)

	// RecentPredictions returns the latest audited predictions, newest first.
	// Returns ErrAuditUnavailable when no audit database is configured.
	RecentPredictions(ctx context.Context, limit int) ([]models.PredictionRecord, error)
}

// valuationService is the concrete implementation of ValuationService.
type valuationService struct {
	store     *ModelStore
	assembler *features.Assembler
	repo      repository.PredictionRepository
	log       *logger.Logger
}

// NewValuationService creates a new instance of ValuationService.
// The prediction repository may be nil, in which case audit persistence is
// skipped.
func NewValuationService(store *ModelStore, assembler *features.Assembler, repo repository.PredictionRepository, log *logger.Logger) ValuationService {
	return &valuationService{
		store:     store,
		assembler: assembler,
		repo:      repo,
		log:       log,
	}
}

// Predict assembles the feature vector for the record, runs the served model,
// and persists an audit row best-effort. A failed audit insert is logged but
// never fails the prediction.
func (s *valuationService) Predict(ctx context.Context, requestID string, rec dataset.PropertyRecord) (*models.Valuation, error) {
	bundle, err := s.store.Bundle()
	if err != nil {
		return nil, err
	}

	vec, err := s.assembler.Assemble(&rec)
	if err != nil {
		switch {
		case errors.Is(err, geo.ErrInvalidCoordinate):
			return nil, fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
		case errors.Is(err, features.ErrMissingCoordinates):
			return nil, fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
		case errors.Is(err, geo.ErrPointOutsideKnownRegions), errors.Is(err, features.ErrUnknownRegion):
			s.log.Warn("Valuation request outside model coverage", map[string]interface{}{
				"request_id": requestID,
				"lat":        rec.Lat,
				"lon":        rec.Lon,
			})
			return nil, fmt.Errorf("%w: %v", ErrUnknownLocation, err)
		default:
			return nil, fmt.Errorf("failed to assemble features: %w", err)
		}
	}

	price, err := bundle.Predict(vec)
	if err != nil {
		s.log.Error("Model prediction failed", err, map[string]interface{}{
			"request_id": requestID,
			"model":      bundle.ModelName,
		})
		return nil, fmt.Errorf("failed to predict price: %w", err)
	}

	valuation := &models.Valuation{
		PriceUF:        price,
		Comuna:         *rec.Comuna,
		Region:         *rec.Region,
		DistHigherEdKm: *rec.DistHigherEdKm,
		DistSchoolKm:   *rec.DistSchoolKm,
		DistPoliceKm:   *rec.DistPoliceKm,
		DistHealthKm:   *rec.DistHealthKm,
		DistMetroKm:    *rec.DistMetroKm,
		ModelName:      bundle.ModelName,
		PredictedAt:    time.Now().UTC(),
	}

	// Attach the comuna's cached aggregates when a snapshot is loaded. A
	// missing snapshot or an uncovered comuna leaves the field nil.
	if snapshot, err := s.store.Snapshot(); err == nil {
		if row, ok := snapshot.Lookup(valuation.Comuna); ok {
			valuation.Neighborhood = &row
		}
	}

	s.log.Info("Valuation served", map[string]interface{}{
		"request_id": requestID,
		"comuna":     valuation.Comuna,
		"price_uf":   valuation.PriceUF,
		"model":      valuation.ModelName,
	})

	s.persistAudit(ctx, requestID, rec, valuation)

	return valuation, nil
}

// RecentPredictions reads back the audit trail for operational review.
func (s *valuationService) RecentPredictions(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	if s.repo == nil {
		return nil, ErrAuditUnavailable
	}

	records, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent predictions: %w", err)
	}
	return records, nil
}

// persistAudit stores the served prediction for later review. Failures are
// logged and swallowed so audit problems never surface to the caller.
func (s *valuationService) persistAudit(ctx context.Context, requestID string, rec dataset.PropertyRecord, valuation *models.Valuation) {
	if s.repo == nil {
		return
	}

	audit := &models.PredictionRecord{
		ID:          uuid.New(),
		RequestID:   requestID,
		Comuna:      valuation.Comuna,
		Region:      valuation.Region,
		Lat:         *rec.Lat,
		Lon:         *rec.Lon,
		UsableArea:  rec.UsableArea,
		TotalArea:   rec.TotalArea,
		Bedrooms:    rec.Bedrooms,
		Bathrooms:   rec.Bathrooms,
		PriceUF:     valuation.PriceUF,
		ModelName:   valuation.ModelName,
		PredictedAt: valuation.PredictedAt,
	}

	if err := s.repo.Insert(ctx, audit); err != nil {
		s.log.Error("Failed to persist prediction audit row", err, map[string]interface{}{
			"request_id":    requestID,
			"prediction_id": audit.ID.String(),
		})
	}
}
