package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gear6io/tablehealth/pkg/errors"
)

// Config represents tablehealth's configuration: where the table lives,
// how to reach its backing object store, and how to log and retry.
type Config struct {
	Version string        `yaml:"version"`
	Storage StorageConfig `yaml:"storage"`
	Analyze AnalyzeConfig `yaml:"analyze"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig holds credentials and tuning for the object store adapter.
// Only one of S3 or GCS is used at a time, selected by the table URI scheme.
type StorageConfig struct {
	S3         S3Config      `yaml:"s3,omitempty"`
	GCS        GCSConfig     `yaml:"gcs,omitempty"`
	Retry      RetryConfig   `yaml:"retry"`
	ListPageSz int           `yaml:"list_page_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Region          string `yaml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	UseSSL          bool   `yaml:"use_ssl"`
}

// GCSConfig holds Google Cloud Storage configuration.
type GCSConfig struct {
	ServiceAccountKeyPath string `yaml:"service_account_key_path,omitempty"`
}

// RetryConfig controls the backoff applied to transient object store errors.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	Factor       float64       `yaml:"factor"`
}

// AnalyzeConfig controls the health analysis run itself.
type AnalyzeConfig struct {
	// ForceFormat overrides auto-detection: "delta", "iceberg", or "" (auto).
	ForceFormat string        `yaml:"force_format,omitempty"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LogConfig holds logging configuration, including file rotation knobs
// consumed by LogManager.
type LogConfig struct {
	Level      string `yaml:"level"`
	Console    bool   `yaml:"console"`
	FilePath   string `yaml:"file_path,omitempty"`
	Cleanup    bool   `yaml:"cleanup"`
	MaxSize    int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age_days"`
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: "0.1.0",
		Storage: StorageConfig{
			Retry: RetryConfig{
				MaxAttempts:  3,
				InitialDelay: 200 * time.Millisecond,
				Factor:       2.0,
			},
			ListPageSz: 1000,
			Timeout:    30 * time.Second,
		},
		Analyze: AnalyzeConfig{
			Timeout: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load loads configuration from the first config file found, falling back
// to defaults if none exists.
func Load() (*Config, error) {
	configPath := findConfigFile()
	if configPath != "" {
		return LoadFromFile(configPath)
	}
	return DefaultConfig(), nil
}

// LoadFromFile loads configuration from a specific file, layering it over
// the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(ErrConfigFileReadFailed, "failed to read config file", err).AddContext("path", path)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(ErrConfigFileParseFailed, "failed to parse config file", err).AddContext("path", path)
	}

	return cfg, nil
}

// Save saves configuration to file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.New(ErrConfigFileMarshalFailed, "failed to marshal config", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(ErrConfigFileWriteFailed, "failed to write config file", err).AddContext("path", path)
	}

	return nil
}

// findConfigFile searches for a configuration file in the usual places.
func findConfigFile() string {
	if _, err := os.Stat("tablehealth.yml"); err == nil {
		return "tablehealth.yml"
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".tablehealth", "tablehealth.yml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	if _, err := os.Stat("/etc/tablehealth/tablehealth.yml"); err == nil {
		return "/etc/tablehealth/tablehealth.yml"
	}

	return ""
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Storage.Retry.MaxAttempts <= 0 {
		return errors.New(ErrConfigValidationFailed, "invalid retry max attempts", nil).
			AddContext("max_attempts", c.Storage.Retry.MaxAttempts)
	}
	if c.Storage.Retry.Factor < 1.0 {
		return errors.New(ErrConfigValidationFailed, "invalid retry backoff factor", nil).
			AddContext("factor", c.Storage.Retry.Factor)
	}
	if c.Analyze.ForceFormat != "" && c.Analyze.ForceFormat != "delta" && c.Analyze.ForceFormat != "iceberg" {
		return errors.New(ErrConfigValidationFailed, "invalid force_format, want \"delta\" or \"iceberg\"", nil).
			AddContext("force_format", c.Analyze.ForceFormat)
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks that the S3 access key pair is either fully set or fully
// absent, per the "both AWS keys or neither" rule the object store adapter
// relies on.
func (s StorageConfig) Validate() error {
	hasID := s.S3.AccessKeyID != ""
	hasSecret := s.S3.SecretAccessKey != ""
	if hasID != hasSecret {
		return errors.New(ErrStorageValidationFailed, "aws_access_key_id and aws_secret_access_key must be provided together or omitted together", nil)
	}
	return nil
}
