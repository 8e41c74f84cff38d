package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apierrors "github.com/valoranet/valora/internal/errors"
	"github.com/valoranet/valora/internal/middleware"
	"github.com/valoranet/valora/internal/services"
)

// TrainingHandler handles model retraining HTTP requests.
type TrainingHandler struct {
	service services.TrainingService
}

// NewTrainingHandler creates a new TrainingHandler instance.
func NewTrainingHandler(service services.TrainingService) *TrainingHandler {
	return &TrainingHandler{
		service: service,
	}
}

// JobResponse represents a training job in API responses.
type JobResponse struct {
	JobID      string     `json:"job_id"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
	ModelName  string     `json:"model_name,omitempty"`
	InputRows  int        `json:"input_rows,omitempty"`
	TrainRows  int        `json:"train_rows,omitempty"`
}

// Retrain handles POST /api/v1/retrain endpoint.
// It launches an async retraining run and returns 202 Accepted with the job
// ID, or 409 Conflict when a run is already active.
func (h *TrainingHandler) Retrain(c *gin.Context) {
	log := middleware.GetLogger(c)

	job, err := h.service.StartRetrain(c.Request.Context())
	if err != nil {
		if errors.Is(err, services.ErrTrainingInProgress) {
			apierrors.Conflict(c, "A training job is already running", nil)
			return
		}
		if errors.Is(err, services.ErrTrainingUnavailable) {
			apierrors.ServiceUnavailable(c, "No training data source is configured")
			return
		}
		apierrors.InternalServerError(c, "Failed to start training job", err)
		return
	}

	if log != nil {
		log.Info("Accepted retrain request", map[string]interface{}{
			"job_id": job.ID.String(),
		})
	}

	c.JSON(http.StatusAccepted, mapJobToResponse(job))
}

// RetrainStatus handles GET /api/v1/retrain/:id endpoint.
// It returns the state of a previously submitted training job.
func (h *TrainingHandler) RetrainStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid job ID", nil)
		return
	}

	job, err := h.service.JobStatus(id)
	if err != nil {
		if errors.Is(err, services.ErrJobNotFound) {
			apierrors.NotFound(c, "No training job with this ID")
			return
		}
		apierrors.InternalServerError(c, "Failed to query training job", err)
		return
	}

	c.JSON(http.StatusOK, mapJobToResponse(job))
}

// mapJobToResponse converts a TrainingJob to its API representation.
func mapJobToResponse(job *services.TrainingJob) JobResponse {
	return JobResponse{
		JobID:      job.ID.String(),
		Status:     job.Status,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
		Error:      job.Error,
		ModelName:  job.ModelName,
		InputRows:  job.InputRows,
		TrainRows:  job.TrainRows,
	}
}
