// Package config loads application configuration from the environment.
// One Config is built at process start and passed down by reference; no
// package-level mutable state.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/receiptvault/receiptvault/internal/apperr"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Gemini   GeminiConfig
	Worker   WorkerConfig
	Limits   LimitsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database pool configuration.
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// StorageConfig holds image-store configuration. When Bucket is empty the
// server degrades to the local-directory store.
type StorageConfig struct {
	Bucket       string
	Region       string
	EndpointURL  string
	LocalDir     string
	FetchTimeout time.Duration
}

// GeminiConfig holds the generative-AI backend configuration. An empty APIKey
// disables vision extraction, smart categorization, duplicate comparison,
// and insight generation.
type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// WorkerConfig holds scheduled-sweep configuration.
type WorkerConfig struct {
	BatchSize  int
	Interval   time.Duration
	StaleAfter time.Duration
	CronSecret string
}

// LimitsConfig holds subscription-tier limits.
type LimitsConfig struct {
	FreeReceipts int
}

// Load reads configuration from environment variables, loading .env first
// when present.
func Load(logger *slog.Logger) *Config {
	if logger == nil {
		logger = slog.Default()
	}
	if err := godotenv.Load(); err != nil {
		logger.Debug("config.dotenv_missing", "error", err)
	}

	return &Config{
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Storage: StorageConfig{
			Bucket:       getEnv("S3_BUCKET", ""),
			Region:       getEnv("AWS_REGION", "us-east-1"),
			EndpointURL:  getEnv("AWS_ENDPOINT_URL", ""),
			LocalDir:     getEnv("UPLOADS_DIR", "./uploads"),
			FetchTimeout: getEnvAsDuration("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		},
		Gemini: GeminiConfig{
			APIKey:      getEnv("GEMINI_API_KEY", ""),
			BaseURL:     getEnv("GEMINI_BASE_URL", ""),
			Model:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Temperature: getEnvAsFloat32("GEMINI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("GEMINI_TIMEOUT", 45*time.Second),
		},
		Worker: WorkerConfig{
			BatchSize:  getEnvAsInt("WORKER_BATCH_SIZE", 10),
			Interval:   getEnvAsDuration("WORKER_INTERVAL", 5*time.Minute),
			StaleAfter: getEnvAsDuration("WORKER_STALE_AFTER", 15*time.Minute),
			CronSecret: getEnv("CRON_SECRET", ""),
		},
		Limits: LimitsConfig{
			FreeReceipts: getEnvAsInt("FREE_RECEIPT_LIMIT", 50),
		},
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return apperr.WithMessage(apperr.ErrInvalidInput, "DB_URL is required")
	}
	if c.Server.Addr == "" {
		return apperr.WithMessage(apperr.ErrInvalidInput, "HTTP_ADDR is required")
	}
	return nil
}

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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
