// Package config loads curator configuration with precedence:
// defaults, then YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Journal   JournalConfig   `yaml:"journal"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Report    ReportConfig    `yaml:"report"`
	Log       LogConfig       `yaml:"log"`
}

// IndexConfig contains remote vector index settings.
type IndexConfig struct {
	APIKey      string   `yaml:"-"` // env-only, never in YAML
	Host        string   `yaml:"host"`
	Dimension   int      `yaml:"dimension"`
	ScanCap     int      `yaml:"scan_cap"`
	DeleteBatch int      `yaml:"delete_batch"`
	CallTimeout Duration `yaml:"call_timeout"`
	RateLimit   float64  `yaml:"rate_limit"` // store calls per second
}

// EmbeddingConfig contains embedding service settings.
type EmbeddingConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
	Model  string `yaml:"model"`
}

// JournalConfig contains run journal settings.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// SnapshotConfig contains pre-purge snapshot settings. S3 upload is optional;
// with an empty bucket, snapshots stay local.
type SnapshotConfig struct {
	Dir       string `yaml:"dir"`
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"-"` // env-only, never in YAML
	SecretKey string `yaml:"-"` // env-only, never in YAML
	Region    string `yaml:"region"`
	UseSSL    *bool  `yaml:"use_ssl"`
}

// ReportConfig contains progress reporting settings.
type ReportConfig struct {
	ProgressEvery int `yaml:"progress_every"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("CURATOR_CONFIG_PATH", "config/curator.yaml")

	// Missing file is not an error; defaults plus env apply.
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Index: IndexConfig{
			Dimension:   1536,
			ScanCap:     10000,
			DeleteBatch: 100,
			CallTimeout: Duration(30 * time.Second),
			RateLimit:   10,
		},
		Embedding: EmbeddingConfig{
			Model: "text-embedding-3-small",
		},
		Journal: JournalConfig{
			Path: "data/curator.db",
		},
		Snapshot: SnapshotConfig{
			Dir: "data/snapshots",
		},
		Report: ReportConfig{
			ProgressEvery: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Index (PINECONE_API_KEY is the vendor convention)
	if v := os.Getenv("PINECONE_API_KEY"); v != "" {
		cfg.Index.APIKey = v
	}
	if v := os.Getenv("CURATOR_INDEX_HOST"); v != "" {
		cfg.Index.Host = v
	}
	if v := os.Getenv("CURATOR_INDEX_DIMENSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.Dimension = n
		}
	}
	if v := os.Getenv("CURATOR_SCAN_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.ScanCap = n
		}
	}
	if v := os.Getenv("CURATOR_CALL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Index.CallTimeout = Duration(d)
		}
	}
	if v := os.Getenv("CURATOR_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Index.RateLimit = f
		}
	}

	// Embedding (OPENAI_API_KEY is industry convention)
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("CURATOR_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}

	// Journal
	if v := os.Getenv("CURATOR_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}

	// Snapshot
	if v := os.Getenv("CURATOR_SNAPSHOT_DIR"); v != "" {
		cfg.Snapshot.Dir = v
	}
	if v := os.Getenv("CURATOR_SNAPSHOT_ENDPOINT"); v != "" {
		cfg.Snapshot.Endpoint = v
	}
	if v := os.Getenv("CURATOR_SNAPSHOT_BUCKET"); v != "" {
		cfg.Snapshot.Bucket = v
	}
	if v := os.Getenv("CURATOR_SNAPSHOT_ACCESS_KEY"); v != "" {
		cfg.Snapshot.AccessKey = v
	}
	if v := os.Getenv("CURATOR_SNAPSHOT_SECRET_KEY"); v != "" {
		cfg.Snapshot.SecretKey = v
	}
	if v := os.Getenv("CURATOR_SNAPSHOT_REGION"); v != "" {
		cfg.Snapshot.Region = v
	}

	// Report
	if v := os.Getenv("CURATOR_PROGRESS_EVERY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Report.ProgressEvery = n
		}
	}

	// Log
	if v := os.Getenv("CURATOR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CURATOR_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// validate checks that required configuration values are set. A run cannot
// touch the store without credentials, so these fail before any scan.
func (c *Config) validate() error {
	if c.Index.APIKey == "" {
		return errors.New("PINECONE_API_KEY is required")
	}
	if c.Index.Host == "" {
		return errors.New("index host is required (CURATOR_INDEX_HOST or index.host)")
	}
	if c.Index.Dimension <= 0 {
		return fmt.Errorf("index dimension must be positive, got %d", c.Index.Dimension)
	}
	if c.Index.DeleteBatch <= 0 || c.Index.DeleteBatch > 100 {
		return fmt.Errorf("delete batch must be in 1..100, got %d", c.Index.DeleteBatch)
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
