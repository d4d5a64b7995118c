package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"HOST", "PORT", "ARTIFACT_URL", "ARTIFACT_PATH", "MODEL_METADATA_PATH", "CATALOG_PATH",
		"CONFIDENCE_THRESHOLD", "MAX_UPLOAD_BYTES", "ONNXRUNTIME_LIB", "GCS_CREDENTIALS_FILE",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}

	t.Setenv("ARTIFACT_URL", "https://models.example.com/shoes.onnx")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5000", cfg.Addr())
	assert.Equal(t, DefaultArtifactPath, cfg.ArtifactPath)
	assert.Equal(t, 0.5, cfg.ConfidenceThreshold)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.MetadataPath)
	assert.Empty(t, cfg.CatalogPath)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ARTIFACT_URL", "gs://models/shoes.onnx")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.75")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gs://models/shoes.onnx", cfg.ArtifactURL)
	assert.Equal(t, 0.75, cfg.ConfidenceThreshold)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string]struct {
		key, value string
	}{
		"threshold-not-a-number": {"CONFIDENCE_THRESHOLD", "high"},
		"threshold-out-of-range": {"CONFIDENCE_THRESHOLD", "1.5"},
		"upload-not-a-number":    {"MAX_UPLOAD_BYTES", "ten"},
		"upload-zero":            {"MAX_UPLOAD_BYTES", "0"},
		"log-level":              {"LOG_LEVEL", "loud"},
		"log-format":             {"LOG_FORMAT", "xml"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("ARTIFACT_URL", "https://models.example.com/shoes.onnx")
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestFromEnv_ArtifactURL(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "export.onnx")
	require.NoError(t, os.WriteFile(present, []byte("onnx"), 0o644))

	tests := map[string]struct {
		url, path string
		wantErr   bool
	}{
		"missing-artifact-without-url": {url: "", path: filepath.Join(dir, "absent.onnx"), wantErr: true},
		"present-artifact-without-url": {url: "", path: present},
		"missing-artifact-with-url":    {url: "gs://models/shoes.onnx", path: filepath.Join(dir, "absent.onnx")},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("ARTIFACT_URL", tt.url)
			t.Setenv("ARTIFACT_PATH", tt.path)

			cfg, err := FromEnv()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "ARTIFACT_URL is required")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.url, cfg.ArtifactURL)
			assert.Equal(t, tt.path, cfg.ArtifactPath)
		})
	}
}
