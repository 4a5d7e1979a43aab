package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadFromFile(t *testing.T) {
	configContent := `version: "0.1.0"

log:
  level: "debug"
  console: true
  file_path: "logs/tablehealth.log"
  max_size_mb: 100
  max_backups: 3
  max_age_days: 7
  cleanup: true

storage:
  s3:
    region: "us-west-2"
    access_key_id: "AKIAEXAMPLE"
    secret_access_key: "secret"
  retry:
    max_attempts: 5
    initial_delay: 500ms
    factor: 2.5

analyze:
  force_format: "delta"
`

	tmpFile, err := os.CreateTemp("", "tablehealth-config-*.yml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())
	defer tmpFile.Close()

	if _, err := tmpFile.WriteString(configContent); err != nil {
		t.Fatalf("failed to write config content: %v", err)
	}

	cfg, err := LoadFromFile(tmpFile.Name())
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got %q", cfg.Log.Level)
	}
	if cfg.Storage.S3.Region != "us-west-2" {
		t.Errorf("expected region 'us-west-2', got %q", cfg.Storage.S3.Region)
	}
	if cfg.Storage.Retry.MaxAttempts != 5 {
		t.Errorf("expected max attempts 5, got %d", cfg.Storage.Retry.MaxAttempts)
	}
	if cfg.Storage.Retry.InitialDelay != 500*time.Millisecond {
		t.Errorf("expected initial delay 500ms, got %v", cfg.Storage.Retry.InitialDelay)
	}
	if cfg.Analyze.ForceFormat != "delta" {
		t.Errorf("expected force_format 'delta', got %q", cfg.Analyze.ForceFormat)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/tablehealth.yml"); err == nil {
		t.Fatal("expected an error loading a missing config file")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Storage.Retry.MaxAttempts != 3 {
		t.Errorf("expected default max attempts 3, got %d", cfg.Storage.Retry.MaxAttempts)
	}
	if cfg.Storage.Retry.Factor != 2.0 {
		t.Errorf("expected default backoff factor 2.0, got %f", cfg.Storage.Retry.Factor)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level 'info', got %q", cfg.Log.Level)
	}
	if cfg.Analyze.ForceFormat != "" {
		t.Errorf("expected default force_format to be empty, got %q", cfg.Analyze.ForceFormat)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

func TestValidateRejectsBadForceFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Analyze.ForceFormat = "parquet"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unsupported force_format")
	}
}

func TestValidateRejectsBadRetry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Retry.MaxAttempts = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for non-positive max attempts")
	}
}
