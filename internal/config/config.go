// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir       string // Base directory for the database, training states and scratch (always absolute)
	AlgorithmsDir string // Directory scanned for algorithm descriptor files
	ResultsFile   string // Optional lottery data file imported at startup
	LogLevel      string
	Port          int
	DevMode       bool

	MaxStallCycles       int
	MaxNeighborsPerCycle int
	CombinationSizeLimit int
	PausePollInterval    time.Duration
	EventBusCapacity     int
	ProgressEventsPerSec float64

	MaintenanceSchedule string
	BackupSchedule      string
	Backup              *BackupConfig
}

// BackupConfig holds the optional S3-compatible mirror settings.
type BackupConfig struct {
	Bucket   string
	Prefix   string
	Endpoint string // Custom endpoint for S3-compatible stores (R2, MinIO)
	Region   string

	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether a bucket was configured.
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != ""
}

// TrainingRoot is the directory holding per-algorithm training state and artifacts.
func (c *Config) TrainingRoot() string {
	return filepath.Join(c.DataDir, "training")
}

// CacheDir is the worker-owned calculation scratch area.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

// DatabasePath is the SQLite file backing results and run history.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "trainer.db")
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("TRAINER_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	algorithmsDir, err := filepath.Abs(getEnv("ALGORITHMS_DIR", "./algorithms"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve algorithms directory path: %w", err)
	}

	cfg := &Config{
		DataDir:              absDataDir,
		AlgorithmsDir:        algorithmsDir,
		ResultsFile:          getEnv("RESULTS_FILE", ""),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		Port:                 getEnvAsInt("GO_PORT", 8001),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		MaxStallCycles:       getEnvAsInt("MAX_STALL_CYCLES", 20),
		MaxNeighborsPerCycle: getEnvAsInt("MAX_NEIGHBORS_PER_CYCLE", 1000),
		CombinationSizeLimit: getEnvAsInt("COMBINATION_SIZE_LIMIT", 50_000_000),
		PausePollInterval:    time.Duration(getEnvAsInt("PAUSE_POLL_MS", 200)) * time.Millisecond,
		EventBusCapacity:     getEnvAsInt("EVENT_BUS_CAPACITY", 1024),
		ProgressEventsPerSec: getEnvAsFloat("PROGRESS_EVENTS_PER_SEC", 10),
		MaintenanceSchedule:  getEnv("MAINTENANCE_SCHEDULE", "0 0 * * * *"),
		BackupSchedule:       getEnv("BACKUP_SCHEDULE", "0 30 3 * * *"),
		Backup: &BackupConfig{
			Bucket:   getEnv("BACKUP_S3_BUCKET", ""),
			Prefix:   getEnv("BACKUP_S3_PREFIX", "training"),
			Endpoint: getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:   getEnv("BACKUP_S3_REGION", "auto"),

			AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that tunables are in range
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid GO_PORT %d", c.Port)
	}
	if c.MaxStallCycles < 1 {
		return fmt.Errorf("MAX_STALL_CYCLES must be positive, got %d", c.MaxStallCycles)
	}
	if c.MaxNeighborsPerCycle < 1 {
		return fmt.Errorf("MAX_NEIGHBORS_PER_CYCLE must be positive, got %d", c.MaxNeighborsPerCycle)
	}
	if c.CombinationSizeLimit < 1 {
		return fmt.Errorf("COMBINATION_SIZE_LIMIT must be positive, got %d", c.CombinationSizeLimit)
	}
	if c.PausePollInterval <= 0 {
		return fmt.Errorf("PAUSE_POLL_MS must be positive")
	}
	if c.EventBusCapacity < 1 {
		return fmt.Errorf("EVENT_BUS_CAPACITY must be positive, got %d", c.EventBusCapacity)
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
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
