package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RECOGNIZER_BACKEND", "")
	t.Setenv("METADATA_BACKEND", "")
	t.Setenv("FORM_RECOGNIZER_POLL_TIMEOUT", "")
	t.Setenv("MAX_UPLOAD_BYTES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RecognizerBackend != RecognizerLocal {
		t.Fatalf("expected default recognizer local, got %q", cfg.RecognizerBackend)
	}
	if cfg.MetadataBackend != MetadataPostgres {
		t.Fatalf("expected default metadata backend postgres, got %q", cfg.MetadataBackend)
	}
	if cfg.FormRecognizerPollTimeout != 2*time.Minute {
		t.Fatalf("expected default poll timeout 2m, got %v", cfg.FormRecognizerPollTimeout)
	}
	if cfg.MaxUploadBytes != 50<<20 {
		t.Fatalf("expected default max upload 50MiB, got %d", cfg.MaxUploadBytes)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RECOGNIZER_BACKEND", "FormRecognizer")
	t.Setenv("FORM_RECOGNIZER_POLL_INTERVAL", "250ms")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("QUEUE_ENABLED", "false")
	t.Setenv("REDIS_CACHE_TTL", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RecognizerBackend != RecognizerFormRecognizer {
		t.Fatalf("expected lower-cased backend, got %q", cfg.RecognizerBackend)
	}
	if cfg.FormRecognizerPollInterval != 250*time.Millisecond {
		t.Fatalf("expected poll interval 250ms, got %v", cfg.FormRecognizerPollInterval)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rps 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.QueueEnabled {
		t.Fatalf("expected queue disabled")
	}
	if cfg.RedisCacheTTL != 5*time.Minute {
		t.Fatalf("expected invalid duration to fall back to 5m, got %v", cfg.RedisCacheTTL)
	}
}

func TestLoadReadsConfigFileAndEnvironmentWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paperpulse.yaml")
	content := "STORAGE_BACKEND: gcs\nGCS_BUCKET: scans\nAPI_PORT: \"9000\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("GCS_BUCKET", "")
	t.Setenv("API_PORT", "8081")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StorageBackend != StorageGCS || cfg.GCSBucket != "scans" {
		t.Fatalf("expected file values, got backend=%q bucket=%q", cfg.StorageBackend, cfg.GCSBucket)
	}
	if cfg.APIPort != "8081" {
		t.Fatalf("expected environment to win, got %q", cfg.APIPort)
	}
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	base := source{}.load()
	base.RecognizerBackend = RecognizerLocal
	base.StorageBackend = StorageLocalFS
	base.MetadataBackend = MetadataPostgres
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown recognizer", func(c *Config) { c.RecognizerBackend = "ocr" }, "RECOGNIZER_BACKEND"},
		{"form recognizer key", func(c *Config) { c.RecognizerBackend = RecognizerFormRecognizer }, "FORM_RECOGNIZER_API_KEY"},
		{"vertex project", func(c *Config) { c.RecognizerBackend = RecognizerVertex; c.VertexProject = "" }, "VERTEX_PROJECT"},
		{"gcs bucket", func(c *Config) { c.StorageBackend = StorageGCS; c.GCSBucket = "" }, "GCS_BUCKET"},
		{"firestore project", func(c *Config) { c.MetadataBackend = MetadataFirestore; c.FirestoreProject = "" }, "FIRESTORE_PROJECT"},
		{"upload limit", func(c *Config) { c.MaxUploadBytes = 0 }, "MAX_UPLOAD_BYTES"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			cfg.FormRecognizerEndpoint = ""
			cfg.FormRecognizerAPIKey = ""
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() error = %v, want mention of %s", err, tc.want)
			}
		})
	}
}
