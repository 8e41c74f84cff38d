package repository

import (
	"context"
	"fmt"

	"github.com/valoranet/valora/internal/database"
	"github.com/valoranet/valora/internal/models"
)

// PredictionRepository defines the interface for prediction audit persistence.
type PredictionRepository interface {
	// Insert stores one served prediction.
	// Returns error only for actual database failures.
	Insert(ctx context.Context, rec *models.PredictionRecord) error

	// ListRecent returns the most recent predictions, newest first.
	// Returns an empty slice if no predictions exist (not an error).
	ListRecent(ctx context.Context, limit int) ([]models.PredictionRecord, error)
}

// predictionRepository is the concrete implementation of PredictionRepository.
type predictionRepository struct {
	db *database.Database
}

// NewPredictionRepository creates a new instance of PredictionRepository.
func NewPredictionRepository(db *database.Database) PredictionRepository {
	return &predictionRepository{
		db: db,
	}
}

// Insert stores one served prediction in the model_predictions table.
func (r *predictionRepository) Insert(ctx context.Context, rec *models.PredictionRecord) error {
	query := `
		INSERT INTO model_predictions (
			id,
			request_id,
			comuna,
			region,
			latitud,
			longitud,
			superficie_util,
			superficie_total,
			dormitorios,
			banos,
			precio_uf,
			model_name,
			predicted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		rec.ID,
		rec.RequestID,
		rec.Comuna,
		rec.Region,
		rec.Lat,
		rec.Lon,
		rec.UsableArea,
		rec.TotalArea,
		rec.Bedrooms,
		rec.Bathrooms,
		rec.PriceUF,
		rec.ModelName,
		rec.PredictedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction %s: %w", rec.ID, err)
	}

	return nil
}

// Maximum number of predictions to return from the recent query
const maxRecentResults = 100

// ListRecent returns the most recent predictions ordered by predicted_at
// descending.
func (r *predictionRepository) ListRecent(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	if limit <= 0 || limit > maxRecentResults {
		limit = maxRecentResults
	}

	query := `
		SELECT
			id,
			request_id,
			comuna,
			region,
			latitud,
			longitud,
			superficie_util,
			superficie_total,
			dormitorios,
			banos,
			precio_uf,
			model_name,
			predicted_at
		FROM model_predictions
		ORDER BY predicted_at DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent predictions: %w", err)
	}
	defer rows.Close()

	var results []models.PredictionRecord

	for rows.Next() {
		var rec models.PredictionRecord

		err := rows.Scan(
			&rec.ID,
			&rec.RequestID,
			&rec.Comuna,
			&rec.Region,
			&rec.Lat,
			&rec.Lon,
			&rec.UsableArea,
			&rec.TotalArea,
			&rec.Bedrooms,
			&rec.Bathrooms,
			&rec.PriceUF,
			&rec.ModelName,
			&rec.PredictedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction row: %w", err)
		}

		results = append(results, rec)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prediction rows: %w", err)
	}

	// Return empty slice if no predictions found (not an error)
	if results == nil {
		results = []models.PredictionRecord{}
	}

	return results, nil
}
