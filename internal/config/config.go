// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrJWTSecretRequired is returned when JWT_SECRET resolves to an empty value.
	ErrJWTSecretRequired = errors.New("config: JWT_SECRET must not be empty")
	// ErrInvalidPort is returned when PORT is outside the TCP port range.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
	// ErrInvalidTokenTTL is returned when TOKEN_TTL is not positive.
	ErrInvalidTokenTTL = errors.New("config: TOKEN_TTL must be positive")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=10000" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`
	MaxUploadBytes int64    `env:"MAX_UPLOAD_BYTES, default=0" json:"max_upload_bytes"` // 0 disables the limit

	// Authentication settings
	JWTSecret string        `env:"JWT_SECRET, default=secret" json:"-"` // Masked in JSON
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=168h" json:"token_ttl"`
	UsersFile string        `env:"USERS_FILE" json:"users_file,omitempty"`

	// Catalog and upload staging
	CatalogPath string `env:"CATALOG_PATH, default=videos.json" json:"catalog_path"`
	TempDir     string `env:"TEMP_DIR, default=tmp" json:"temp_dir"`

	// Google Drive settings
	DriveFolderID      string `env:"DRIVE_FOLDER_ID" json:"drive_folder_id,omitempty"`
	ServiceAccountJSON string `env:"SERVICE_ACCOUNT_JSON" json:"-"` // Masked in JSON

	// Optional S3 settings, used instead of Drive when bucket and region are set
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Prefix           string `env:"S3_PREFIX, default=videos" json:"s3_prefix"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads an optional .env file from the working directory and then
// populates the configuration from the environment using go-envconfig.
// Variables already present in the environment take precedence over .env.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the loaded values are usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.JWTSecret == "" {
		return ErrJWTSecretRequired
	}
	if c.TokenTTL <= 0 {
		return ErrInvalidTokenTTL
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, CatalogPath: %s, TempDir: %s, DriveFolderID: %s, S3Bucket: %s, S3Region: %s, TokenTTL: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.CatalogPath,
		c.TempDir,
		c.DriveFolderID,
		c.S3Bucket,
		c.S3Region,
		c.TokenTTL,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
