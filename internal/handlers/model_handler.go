package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/valoranet/valora/internal/errors"
	"github.com/valoranet/valora/internal/services"
	"github.com/valoranet/valora/internal/textnorm"
)

// ModelHandler handles model metadata and neighborhood HTTP requests.
type ModelHandler struct {
	store *services.ModelStore
}

// NewModelHandler creates a new ModelHandler instance.
func NewModelHandler(store *services.ModelStore) *ModelHandler {
	return &ModelHandler{
		store: store,
	}
}

// Metrics handles GET /api/v1/model/metrics endpoint.
// It returns the evaluation metrics of the currently served model.
func (h *ModelHandler) Metrics(c *gin.Context) {
	metrics, err := h.store.Metrics()
	if err != nil {
		if errors.Is(err, services.ErrModelNotLoaded) {
			apierrors.ServiceUnavailable(c, "No model metrics are available yet")
			return
		}
		apierrors.InternalServerError(c, "Failed to load model metrics", err)
		return
	}

	c.JSON(http.StatusOK, metrics)
}

// Neighborhood handles GET /api/v1/neighborhoods/:name endpoint.
// The name is normalized the same way snapshot keys are, so accents and
// casing in the URL do not matter.
func (h *ModelHandler) Neighborhood(c *gin.Context) {
	snapshot, err := h.store.Snapshot()
	if err != nil {
		if errors.Is(err, services.ErrModelNotLoaded) {
			apierrors.ServiceUnavailable(c, "No neighborhood data is available yet")
			return
		}
		apierrors.InternalServerError(c, "Failed to load neighborhood data", err)
		return
	}

	name := textnorm.Normalize(c.Param("name"))
	row, ok := snapshot.Lookup(name)
	if !ok {
		apierrors.NotFound(c, "No data for this neighborhood")
		return
	}

	c.JSON(http.StatusOK, row)
}
