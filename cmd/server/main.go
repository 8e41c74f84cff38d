package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/valoranet/valora/internal/config"
	"github.com/valoranet/valora/internal/database"
	"github.com/valoranet/valora/internal/dataset"
	"github.com/valoranet/valora/internal/features"
	"github.com/valoranet/valora/internal/handlers"
	"github.com/valoranet/valora/internal/logger"
	"github.com/valoranet/valora/internal/middleware"
	"github.com/valoranet/valora/internal/repository"
	"github.com/valoranet/valora/internal/services"
	"github.com/valoranet/valora/internal/training"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting Valora API", map[string]interface{}{
		"version":     "0.1.0",
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	// Create database connection pool for the prediction audit store
	ctx := context.Background()
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Name,
		"pool_min": cfg.Database.PoolMin,
		"pool_max": cfg.Database.PoolMax,
	})

	// Load the geospatial layers and region mapping
	assembler, err := buildAssembler(cfg.Layers, log)
	if err != nil {
		log.Fatal("Failed to load geospatial layers", err, nil)
	}

	// Load the trained model artifacts. A missing model is tolerated so the
	// server can come up and be populated by the first retrain.
	store := services.NewModelStore(log)
	if err := store.LoadFromDisk(cfg.Artifacts.ModelPath, cfg.Artifacts.MetricsPath, cfg.Artifacts.SnapshotPath); err != nil {
		log.Warn("No model loaded at startup; predictions unavailable until retrain", map[string]interface{}{
			"path":  cfg.Artifacts.ModelPath,
			"error": err.Error(),
		})
	}

	// Open the listings source for retraining when configured
	var source dataset.ListingSource
	if cfg.Listings.DSN != "" {
		sqlSource, err := dataset.OpenSQLListingSource(cfg.Listings.DSN)
		if err != nil {
			log.Fatal("Failed to connect to listings database", err, nil)
		}
		defer sqlSource.Close()
		source = sqlSource
	} else {
		log.Warn("LISTINGS_DSN not set; retraining endpoint disabled", nil)
	}

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Register health check routes
	healthHandler := handlers.NewHealthHandler(db, store, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// Initialize repository and service layers
	predictionRepo := repository.NewPredictionRepository(db)
	valuationService := services.NewValuationService(store, assembler, predictionRepo, log)

	trainOpts := training.Options{
		Folds: cfg.Retrain.Folds,
		Seed:  cfg.Retrain.Seed,
	}
	pipeline := training.NewPipeline(assembler, trainOpts, log)
	trainingService := services.NewTrainingService(
		source,
		pipeline,
		store,
		services.ArtifactPaths{
			ModelPath:    cfg.Artifacts.ModelPath,
			MetricsPath:  cfg.Artifacts.MetricsPath,
			SnapshotPath: cfg.Artifacts.SnapshotPath,
		},
		services.PriceNormalization{
			UFValueCLP:    cfg.Valuation.UFValueCLP,
			USDToCLP:      cfg.Valuation.USDToCLP,
			ReferenceYear: cfg.Valuation.ReferenceYear,
		},
		log,
	)

	// Initialize handlers
	valuationHandler := handlers.NewValuationHandler(valuationService)
	trainingHandler := handlers.NewTrainingHandler(trainingService)
	modelHandler := handlers.NewModelHandler(store)

	// Register API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/predict", valuationHandler.Predict)
		v1.GET("/predictions", valuationHandler.Recent)
		v1.GET("/model/metrics", modelHandler.Metrics)
		v1.GET("/neighborhoods/:name", modelHandler.Neighborhood)

		retrain := v1.Group("/retrain")
		retrain.Use(middleware.BearerAuth(cfg.Retrain.Token))
		{
			retrain.POST("", trainingHandler.Retrain)
			retrain.GET("/:id", trainingHandler.RetrainStatus)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}

// buildAssembler loads every geospatial layer and the comuna-to-region
// mapping from the configured paths.
func buildAssembler(cfg config.LayersConfig, log *logger.Logger) (*features.Assembler, error) {
	assembler, err := features.LoadAssembler(features.LayerPaths{
		HigherEd:  cfg.HigherEdPath,
		Schools:   cfg.SchoolsPath,
		Police:    cfg.PolicePath,
		Health:    cfg.HealthPath,
		Metro:     cfg.MetroPath,
		Regions:   cfg.RegionsPath,
		RegionMap: cfg.RegionMapPath,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Geospatial layers loaded", map[string]interface{}{
		"higher_ed": cfg.HigherEdPath,
		"schools":   cfg.SchoolsPath,
		"police":    cfg.PolicePath,
		"health":    cfg.HealthPath,
		"metro":     cfg.MetroPath,
		"regions":   cfg.RegionsPath,
	})

	return assembler, nil
}
