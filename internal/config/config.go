package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Logging  LoggingConfig
	Monitor  MonitorConfig
	Anomaly  AnomalyConfig
	Metrics  MetricsConfig
	Jobs     JobsConfig
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// MonitorConfig contains monitoring loop configuration
type MonitorConfig struct {
	Interval      time.Duration
	CacheInterval time.Duration
	TickTimeout   time.Duration
}

// AnomalyConfig contains anomaly detection configuration
type AnomalyConfig struct {
	// SkipOpenDuplicates suppresses new anomalies for a
	// (resource_type, region) group that already has an open one.
	SkipOpenDuplicates bool
}

// MetricsConfig contains the Prometheus listener configuration
type MetricsConfig struct {
	Enabled    bool
	ListenAddr string
}

// JobsConfig contains cron schedules for background jobs
type JobsConfig struct {
	ForecastRefreshSpec  string
	OptimizationScanSpec string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Path:            getEnv("DB_PATH", "./costwatch.db"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Monitor: MonitorConfig{
			Interval:      getEnvAsDuration("MONITOR_INTERVAL", 5*time.Minute),
			CacheInterval: getEnvAsDuration("METRICS_CACHE_INTERVAL", 5*time.Minute),
			TickTimeout:   getEnvAsDuration("MONITOR_TICK_TIMEOUT", 2*time.Minute),
		},
		Anomaly: AnomalyConfig{
			SkipOpenDuplicates: getEnvAsBool("ANOMALY_SKIP_OPEN_DUPLICATES", false),
		},
		Metrics: MetricsConfig{
			Enabled:    getEnvAsBool("PROM_METRICS_ENABLED", true),
			ListenAddr: getEnv("PROM_METRICS_ADDR", ":9090"),
		},
		Jobs: JobsConfig{
			ForecastRefreshSpec:  getEnv("JOB_FORECAST_REFRESH_SPEC", "0 2 * * *"),
			OptimizationScanSpec: getEnv("JOB_OPTIMIZATION_SCAN_SPEC", "0 3 * * 1"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DB_PATH must not be empty")
	}

	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("MONITOR_INTERVAL must be positive: %s", c.Monitor.Interval)
	}

	if c.Monitor.CacheInterval <= 0 {
		return fmt.Errorf("METRICS_CACHE_INTERVAL must be positive: %s", c.Monitor.CacheInterval)
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("PROM_METRICS_ADDR must be set when metrics are enabled")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
