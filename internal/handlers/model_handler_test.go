package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/valoranet/valora/internal/errors"
	"github.com/valoranet/valora/internal/logger"
	"github.com/valoranet/valora/internal/middleware"
	"github.com/valoranet/valora/internal/neighborhood"
	"github.com/valoranet/valora/internal/regress"
	"github.com/valoranet/valora/internal/services"
	"github.com/valoranet/valora/internal/training"
)

func setupModelTestRouter(handler *ModelHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.New("test")))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/model/metrics", handler.Metrics)
		v1.GET("/neighborhoods/:name", handler.Neighborhood)
	}

	return router
}

func storeWith(metrics *training.ModelMetrics, snapshot *neighborhood.Snapshot) *services.ModelStore {
	store := services.NewModelStore(logger.New("test"))
	store.Swap(nil, metrics, snapshot)
	return store
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := &training.ModelMetrics{
		ModelName: "gradient_boosting",
		Metrics: map[string]regress.Metrics{
			"gradient_boosting": {RMSE: 812.4, R2: 0.81, MAPE: 19.2},
			"random_forest":     {RMSE: 905.1, R2: 0.77, MAPE: 21.8},
		},
		Rows:      950,
		TrainedAt: time.Now().UTC(),
	}
	router := setupModelTestRouter(NewModelHandler(storeWith(metrics, nil)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/model/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp training.ModelMetrics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "gradient_boosting", resp.ModelName)
	assert.Equal(t, 950, resp.Rows)
	assert.InDelta(t, 812.4, resp.Metrics["gradient_boosting"].RMSE, 1e-9)
	assert.Len(t, resp.Metrics, 2)
}

func TestMetricsEndpoint_NotLoaded(t *testing.T) {
	router := setupModelTestRouter(NewModelHandler(services.NewModelStore(logger.New("test"))))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/model/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apierrors.ErrModelUnavailable, resp.Error.Code)
}

func TestNeighborhoodEndpoint(t *testing.T) {
	snapshot := &neighborhood.Snapshot{
		Rows: map[string]neighborhood.Row{
			"nunoa": {Comuna: "nunoa", MedianPriceUF: 4250, MeanUsableArea: 68.5, Count: 312},
		},
		ComputedAt: time.Now().UTC(),
	}
	router := setupModelTestRouter(NewModelHandler(storeWith(nil, snapshot)))

	tests := []struct {
		name string
		path string
	}{
		{name: "normalized name", path: "/api/v1/neighborhoods/nunoa"},
		{name: "accented uppercase name", path: "/api/v1/neighborhoods/%C3%91U%C3%91OA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)

			var row neighborhood.Row
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &row))
			assert.Equal(t, "nunoa", row.Comuna)
			assert.InDelta(t, 4250, row.MedianPriceUF, 1e-9)
			assert.Equal(t, 312, row.Count)

			assert.Contains(t, w.Body.String(), `"avg_price_uf"`)
			assert.Contains(t, w.Body.String(), `"n_properties"`)
		})
	}
}

func TestNeighborhoodEndpoint_NotFound(t *testing.T) {
	snapshot := &neighborhood.Snapshot{
		Rows:       map[string]neighborhood.Row{"nunoa": {Comuna: "nunoa", Count: 1}},
		ComputedAt: time.Now().UTC(),
	}
	router := setupModelTestRouter(NewModelHandler(storeWith(nil, snapshot)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/neighborhoods/atlantis", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apierrors.ErrNotFound, resp.Error.Code)
}

func TestNeighborhoodEndpoint_NoSnapshot(t *testing.T) {
	router := setupModelTestRouter(NewModelHandler(services.NewModelStore(logger.New("test"))))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/neighborhoods/nunoa", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
