package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Backend  BackendConfig
	Storage  StorageConfig
	Auth     AuthConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	StreamLogFilePath  string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	StatusFeedDriver   string // "memory", "nats" or "redis"
	OtelEnabled        bool
}

type DatabaseConfig struct {
	Driver     string // "postgres" or "sqlite"
	Connection string
	LogLevel   string
}

// BackendConfig points at the remote AI backend that processes documents and
// answers questions.
type BackendConfig struct {
	BaseURL            string
	RequestTimeout     time.Duration
	TriggerMaxElapsed  time.Duration
	TriggerMaxAttempts int
}

type StorageConfig struct {
	Driver        string // "gcs" or "local"
	Bucket        string
	LocalRoot     string
	PublicBaseURL string
	SignedURLTTL  time.Duration
}

type AuthConfig struct {
	JWTSecret      string
	ProcessorToken string
}

const (
	FeedDriverMemory = "memory"
	FeedDriverNats   = "nats"
	FeedDriverRedis  = "redis"

	StorageDriverGCS   = "gcs"
	StorageDriverLocal = "local"

	DatabaseDriverPostgres = "postgres"
	DatabaseDriverSQLite   = "sqlite"
)

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.json"),
			StreamLogFilePath:  getEnv("STREAM_LOG_FILE_PATH", "status_stream.log.json"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			StatusFeedDriver:   strings.ToLower(getEnv("STATUS_FEED_DRIVER", FeedDriverMemory)),
			OtelEnabled:        getEnv("OTEL_ENABLED", "false") == "true",
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", DatabaseDriverPostgres)),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			LogLevel:   getEnv("DB_LOG_LEVEL", "warn"),
		},
		Backend: BackendConfig{
			BaseURL:            strings.TrimRight(getEnv("BACKEND_URL", ""), "/"),
			RequestTimeout:     getEnvAsDuration("BACKEND_REQUEST_TIMEOUT", 60*time.Second),
			TriggerMaxElapsed:  getEnvAsDuration("BACKEND_TRIGGER_MAX_ELAPSED", 2*time.Minute),
			TriggerMaxAttempts: getEnvAsInt("BACKEND_TRIGGER_MAX_ATTEMPTS", 5),
		},
		Storage: StorageConfig{
			Driver:        strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverLocal)),
			Bucket:        getEnv("GCS_BUCKET", ""),
			LocalRoot:     getEnv("STORAGE_LOCAL_ROOT", "./uploads"),
			PublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", "http://localhost:3000/files"),
			SignedURLTTL:  getEnvAsDuration("STORAGE_SIGNED_URL_TTL", 15*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("JWT_SECRET", ""),
			ProcessorToken: getEnv("PROCESSOR_TOKEN", ""),
		},
	}
}

// Validate rejects configurations the server cannot start with. It runs
// before any component is constructed.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("BACKEND_URL must be an http(s) URL, got %q", c.Backend.BaseURL)
	}

	switch c.App.StatusFeedDriver {
	case FeedDriverMemory, FeedDriverNats, FeedDriverRedis:
	default:
		return fmt.Errorf("unknown STATUS_FEED_DRIVER %q", c.App.StatusFeedDriver)
	}

	switch c.Storage.Driver {
	case StorageDriverGCS:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("GCS_BUCKET is required when STORAGE_DRIVER=gcs")
		}
	case StorageDriverLocal:
		if c.Storage.LocalRoot == "" {
			return fmt.Errorf("STORAGE_LOCAL_ROOT is required when STORAGE_DRIVER=local")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	switch c.Database.Driver {
	case DatabaseDriverPostgres, DatabaseDriverSQLite:
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
