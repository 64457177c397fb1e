package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the MediaVault API.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	MinIO    MinIOConfig
	Auth     AuthConfig
	Staging  StagingConfig
	Upload   UploadConfig
	Archive  ArchiveConfig
	Metrics  MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries object-store connection information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string
}

// AuthConfig groups authentication-related settings.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenTTL    time.Duration
	BcryptCost        int
}

// StagingConfig controls the archive-export staging area and its sweep.
type StagingConfig struct {
	Root          string
	Retention     time.Duration
	SweepSchedule string
}

// UploadConfig bounds inbound request bodies.
type UploadConfig struct {
	MaxBodyBytes int64
}

// ArchiveConfig controls zip export encoding.
type ArchiveConfig struct {
	// CompressionLevel follows flate semantics: 0 store, 9 best compression.
	CompressionLevel int
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("MEDIAVAULT_API_HOST", "0.0.0.0"),
			Port:         getInt("MEDIAVAULT_API_PORT", 8080),
			ReadTimeout:  getDuration("MEDIAVAULT_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("MEDIAVAULT_API_WRITE_TIMEOUT", 15*time.Minute),
			IdleTimeout:  getDuration("MEDIAVAULT_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "mediavault_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "mediavault"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "mediavault"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Auth: loadAuthConfig(),
		Staging: StagingConfig{
			Root:          getString("MEDIAVAULT_STAGING_ROOT", "/tmp/buckets"),
			Retention:     getDuration("MEDIAVAULT_STAGING_RETENTION", 30*time.Minute),
			SweepSchedule: getString("MEDIAVAULT_STAGING_SWEEP_SCHEDULE", "@every 10m"),
		},
		Upload: UploadConfig{
			MaxBodyBytes: getInt64("MEDIAVAULT_UPLOAD_MAX_BODY_BYTES", 100<<20),
		},
		Archive: ArchiveConfig{
			CompressionLevel: getInt("MEDIAVAULT_ARCHIVE_COMPRESSION_LEVEL", 9),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("MEDIAVAULT_METRICS_PATH", "/metrics"),
		},
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func loadAuthConfig() AuthConfig {
	cost := getInt("MEDIAVAULT_AUTH_BCRYPT_COST", 12)
	if cost < 4 || cost > 31 {
		cost = 12
	}

	return AuthConfig{
		AccessTokenSecret: getString("MEDIAVAULT_JWT_SECRET", "change-me-to-a-32-byte-secret"),
		AccessTokenTTL:    getDuration("MEDIAVAULT_AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),
		BcryptCost:        cost,
	}
}
