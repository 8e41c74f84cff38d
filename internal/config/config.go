package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Listings  ListingsConfig
	CORS      CORSConfig
	Layers    LayersConfig
	Artifacts ArtifactsConfig
	Valuation ValuationConfig
	Retrain   RetrainConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds PostgreSQL connection configuration for the
// prediction audit database.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// ListingsConfig holds the connection string for the scraped listings
// database used as training input. It is optional; retraining from the
// database is disabled when empty.
type ListingsConfig struct {
	DSN string
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// LayersConfig holds paths to the geospatial layer files.
type LayersConfig struct {
	HigherEdPath  string
	SchoolsPath   string
	PolicePath    string
	HealthPath    string
	MetroPath     string
	RegionsPath   string
	RegionMapPath string
}

// ArtifactsConfig holds paths for the trained model artifacts.
type ArtifactsConfig struct {
	ModelPath    string
	MetricsPath  string
	SnapshotPath string
}

// ValuationConfig holds the conversion constants used when normalizing
// listing prices to UF.
type ValuationConfig struct {
	UFValueCLP    float64
	USDToCLP      float64
	ReferenceYear int
}

// RetrainConfig holds settings for the async retraining endpoint.
type RetrainConfig struct {
	Token string
	Folds int
	Seed  int64
}

// Load reads configuration from environment variables.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "valora")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")
	v.SetDefault("LAYER_HIGHER_ED", "data/layers/educacion_superior.geojson")
	v.SetDefault("LAYER_SCHOOLS", "data/layers/educacion_escolar.geojson")
	v.SetDefault("LAYER_POLICE", "data/layers/comisarias.geojson")
	v.SetDefault("LAYER_HEALTH", "data/layers/establecimientos_salud.geojson")
	v.SetDefault("LAYER_METRO", "data/layers/lineas_metro.geojson")
	v.SetDefault("LAYER_REGIONS", "data/layers/comunas.geojson")
	v.SetDefault("REGION_MAP", "data/region_map.json")
	v.SetDefault("MODEL_PATH", "artifacts/model.gob")
	v.SetDefault("METRICS_PATH", "artifacts/model_metrics.json")
	v.SetDefault("SNAPSHOT_PATH", "artifacts/neighborhoods.json")
	v.SetDefault("UF_VALUE_CLP", 39500.0)
	v.SetDefault("USD_TO_CLP", 930.0)
	v.SetDefault("REFERENCE_YEAR", 2025)
	v.SetDefault("RETRAIN_FOLDS", 5)
	v.SetDefault("RETRAIN_SEED", 42)

	// Bind environment variables
	v.AutomaticEnv()

	// Build configuration
	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		Listings: ListingsConfig{
			DSN: v.GetString("LISTINGS_DSN"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
		Layers: LayersConfig{
			HigherEdPath:  v.GetString("LAYER_HIGHER_ED"),
			SchoolsPath:   v.GetString("LAYER_SCHOOLS"),
			PolicePath:    v.GetString("LAYER_POLICE"),
			HealthPath:    v.GetString("LAYER_HEALTH"),
			MetroPath:     v.GetString("LAYER_METRO"),
			RegionsPath:   v.GetString("LAYER_REGIONS"),
			RegionMapPath: v.GetString("REGION_MAP"),
		},
		Artifacts: ArtifactsConfig{
			ModelPath:    v.GetString("MODEL_PATH"),
			MetricsPath:  v.GetString("METRICS_PATH"),
			SnapshotPath: v.GetString("SNAPSHOT_PATH"),
		},
		Valuation: ValuationConfig{
			UFValueCLP:    v.GetFloat64("UF_VALUE_CLP"),
			USDToCLP:      v.GetFloat64("USD_TO_CLP"),
			ReferenceYear: v.GetInt("REFERENCE_YEAR"),
		},
		Retrain: RetrainConfig{
			Token: v.GetString("RETRAIN_TOKEN"),
			Folds: v.GetInt("RETRAIN_FOLDS"),
			Seed:  v.GetInt64("RETRAIN_SEED"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if c.Database.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if c.Database.PoolMin > c.Database.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}

	// Validate CORS config
	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	// Validate artifact config
	if c.Artifacts.ModelPath == "" {
		return fmt.Errorf("MODEL_PATH is required")
	}

	// Validate valuation config
	if c.Valuation.UFValueCLP <= 0 {
		return fmt.Errorf("UF_VALUE_CLP must be positive")
	}
	if c.Valuation.USDToCLP <= 0 {
		return fmt.Errorf("USD_TO_CLP must be positive")
	}

	// Validate retrain config
	if c.Retrain.Folds < 2 {
		return fmt.Errorf("RETRAIN_FOLDS must be at least 2")
	}

	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
