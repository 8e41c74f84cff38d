package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/valoranet/valora/internal/dataset"
	apierrors "github.com/valoranet/valora/internal/errors"
	"github.com/valoranet/valora/internal/middleware"
	"github.com/valoranet/valora/internal/neighborhood"
	"github.com/valoranet/valora/internal/services"
)

// ValuationHandler handles property valuation HTTP requests.
type ValuationHandler struct {
	service services.ValuationService
}

// NewValuationHandler creates a new ValuationHandler instance.
func NewValuationHandler(service services.ValuationService) *ValuationHandler {
	return &ValuationHandler{
		service: service,
	}
}

// PredictRequest represents the request body for the predict endpoint.
// Coordinates are required; pointer fields let validation distinguish an
// absent field from a legitimate zero. All other attributes are optional
// and imputed by the model when missing.
type PredictRequest struct {
	Lat *float64 `json:"latitud" binding:"required,min=-90,max=90"`
	Lon *float64 `json:"longitud" binding:"required,min=-180,max=180"`

	Comuna     *string  `json:"comuna"`
	Type       *string  `json:"tipo"`
	UsableArea *float64 `json:"superficie_util" binding:"omitempty,gt=0"`
	TotalArea  *float64 `json:"superficie_total" binding:"omitempty,gt=0"`
	Bedrooms   *float64 `json:"dormitorios" binding:"omitempty,gte=0"`
	Bathrooms  *float64 `json:"banos" binding:"omitempty,gte=0"`
	Age        *float64 `json:"antiguedad" binding:"omitempty,gte=0"`
}

// PredictResponse represents the response for the predict endpoint. The
// neighborhood aggregates are included when the served snapshot covers the
// resolved comuna.
type PredictResponse struct {
	PriceUF      float64           `json:"precio_uf"`
	Comuna       string            `json:"comuna"`
	Region       string            `json:"region"`
	Distances    DistancesResponse `json:"distancias_km"`
	Neighborhood *neighborhood.Row `json:"neighborhood,omitempty"`
	ModelName    string            `json:"model_name"`
	Timestamp    time.Time         `json:"timestamp"`
}

// DistancesResponse holds the derived proximity features, in kilometers.
type DistancesResponse struct {
	HigherEd float64 `json:"educacion_superior"`
	Schools  float64 `json:"educacion_escolar"`
	Police   float64 `json:"comisaria"`
	Health   float64 `json:"establecimiento_salud"`
	Metro    float64 `json:"metro"`
}

// Predict handles POST /api/v1/predict endpoint.
// It runs the served valuation model against the supplied property.
func (h *ValuationHandler) Predict(c *gin.Context) {
	log := middleware.GetLogger(c)

	// Bind and validate request body
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Check if it's a validation error
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		// Generic bad request for other binding errors
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	if log != nil {
		log.Info("Processing valuation request", map[string]interface{}{
			"lat": *req.Lat,
			"lon": *req.Lon,
		})
	}

	rec := dataset.PropertyRecord{
		Lat:        req.Lat,
		Lon:        req.Lon,
		Comuna:     req.Comuna,
		Type:       req.Type,
		UsableArea: req.UsableArea,
		TotalArea:  req.TotalArea,
		Bedrooms:   req.Bedrooms,
		Bathrooms:  req.Bathrooms,
		Age:        req.Age,
	}

	// Call service layer
	valuation, err := h.service.Predict(c.Request.Context(), middleware.GetRequestID(c), rec)
	if err != nil {
		// Handle service-level errors
		if errors.Is(err, services.ErrModelNotLoaded) {
			apierrors.ServiceUnavailable(c, "No trained model is available yet")
			return
		}
		if errors.Is(err, services.ErrInvalidCoordinates) {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		if errors.Is(err, services.ErrUnknownLocation) {
			apierrors.BadRequest(c, "Location is outside the model's coverage area", nil)
			return
		}
		// Unexpected errors
		apierrors.InternalServerError(c, "Failed to compute valuation", err)
		return
	}

	response := PredictResponse{
		PriceUF: valuation.PriceUF,
		Comuna:  valuation.Comuna,
		Region:  valuation.Region,
		Distances: DistancesResponse{
			HigherEd: valuation.DistHigherEdKm,
			Schools:  valuation.DistSchoolKm,
			Police:   valuation.DistPoliceKm,
			Health:   valuation.DistHealthKm,
			Metro:    valuation.DistMetroKm,
		},
		Neighborhood: valuation.Neighborhood,
		ModelName:    valuation.ModelName,
		Timestamp:    valuation.PredictedAt,
	}

	c.JSON(http.StatusOK, response)
}

// Recent handles GET /api/v1/predictions endpoint.
// It returns the most recent audited predictions, newest first. An optional
// limit query parameter caps the page size; the repository clamps it.
func (h *ValuationHandler) Recent(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			apierrors.BadRequest(c, "Invalid limit parameter", map[string]interface{}{
				"limit": "must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	records, err := h.service.RecentPredictions(c.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, services.ErrAuditUnavailable) {
			apierrors.ServiceUnavailable(c, "Prediction history is not available")
			return
		}
		apierrors.InternalServerError(c, "Failed to load recent predictions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"predictions": records,
		"count":       len(records),
	})
}
