// Package config provides configuration loading and structs for the Tana server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Store     StoreConfig     `yaml:"store"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CatalogConfig describes the product records being ingested: where they
// live, which fields every record must carry, and which of those fields is
// the price and which is the embeddable text.
type CatalogConfig struct {
	Path         string   `yaml:"path"`
	Fields       []string `yaml:"fields"`
	PriceField   string   `yaml:"price_field"`
	TextField    string   `yaml:"text_field"`
	ExcludedKeys []string `yaml:"excluded_keys"`
}

// EmbeddingConfig holds remote embedding provider settings.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	TimeoutSec int    `yaml:"timeout_sec"`
	MaxRetries int    `yaml:"max_retries"`
	CacheSize  int    `yaml:"cache_size"`
}

// Timeout returns the request timeout as a duration.
func (e *EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSec) * time.Second
}

// ChunkingConfig holds semantic splitter settings.
type ChunkingConfig struct {
	BufferSize int `yaml:"buffer_size"`
	Percentile int `yaml:"percentile"`
}

// StoreConfig selects and configures the index store backend.
type StoreConfig struct {
	Type           string       `yaml:"type"`
	Path           string       `yaml:"path"`
	PriceIndexName string       `yaml:"price_index_name"`
	Qdrant         QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	URL        string `yaml:"url"`
	Collection string `yaml:"collection"`
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	TopK    int `yaml:"top_k"`
	MaxTopK int `yaml:"max_top_k"`
	Workers int `yaml:"workers"`
}

// WatchConfig holds catalog file watch settings.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMs int  `yaml:"debounce_ms"`
}

// Debounce returns the watcher debounce interval as a duration.
func (w *WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Catalog.Path = expandPath(cfg.Catalog.Path, configDir)
	cfg.Store.Path = expandPath(cfg.Store.Path, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every default applied and no file read.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// Validate rejects configs whose catalog section is internally inconsistent.
func (c *Config) Validate() error {
	if len(c.Catalog.Fields) == 0 {
		return fmt.Errorf("catalog.fields must not be empty")
	}
	if !containsField(c.Catalog.Fields, c.Catalog.PriceField) {
		return fmt.Errorf("catalog.price_field %q is not in catalog.fields", c.Catalog.PriceField)
	}
	if !containsField(c.Catalog.Fields, c.Catalog.TextField) {
		return fmt.Errorf("catalog.text_field %q is not in catalog.fields", c.Catalog.TextField)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}
	if c.Chunking.Percentile < 1 || c.Chunking.Percentile > 100 {
		return fmt.Errorf("chunking.percentile must be in [1, 100]")
	}
	return nil
}

func containsField(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
