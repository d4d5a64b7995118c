package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const DefaultArtifactPath = "export.onnx"

type Config struct {
	Host string
	Port string

	ArtifactURL  string
	ArtifactPath string
	MetadataPath string
	CatalogPath  string

	ConfidenceThreshold float64
	MaxUploadBytes      int64

	ONNXRuntimeLib     string
	GCSCredentialsFile string

	LogLevel  zerolog.Level
	LogFormat string
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Host:               getEnv("HOST", "0.0.0.0"),
		Port:               getEnv("PORT", "5000"),
		ArtifactURL:        getEnv("ARTIFACT_URL", ""),
		ArtifactPath:       getEnv("ARTIFACT_PATH", DefaultArtifactPath),
		MetadataPath:       getEnv("MODEL_METADATA_PATH", ""),
		CatalogPath:        getEnv("CATALOG_PATH", ""),
		ONNXRuntimeLib:     getEnv("ONNXRUNTIME_LIB", ""),
		GCSCredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}

	threshold, err := strconv.ParseFloat(getEnv("CONFIDENCE_THRESHOLD", "0.5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CONFIDENCE_THRESHOLD: %w", err)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("CONFIDENCE_THRESHOLD must be within [0,1], got %v", threshold)
	}
	cfg.ConfidenceThreshold = threshold

	maxUpload, err := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", "10485760"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err)
	}
	if maxUpload <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", maxUpload)
	}
	cfg.MaxUploadBytes = maxUpload

	level, err := zerolog.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info")))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return nil, fmt.Errorf("LOG_FORMAT must be json or console, got %q", cfg.LogFormat)
	}

	// There is no default source: the artifact must already be on disk or
	// ARTIFACT_URL must say where to get an ONNX export.
	if cfg.ArtifactURL == "" {
		if _, err := os.Stat(cfg.ArtifactPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("ARTIFACT_URL is required: no model artifact at %s", cfg.ArtifactPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to stat artifact: %w", err)
		}
	}

	return cfg, nil
}
