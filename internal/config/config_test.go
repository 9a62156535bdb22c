package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
catalog:
  path: "./laptops.json"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if len(cfg.Catalog.Fields) != len(LaptopFields) {
		t.Errorf("catalog fields should default to the laptop schema, got %d", len(cfg.Catalog.Fields))
	}
	if cfg.Catalog.PriceField != "price" || cfg.Catalog.TextField != "description" {
		t.Errorf("catalog defaults: %+v", cfg.Catalog)
	}
	if cfg.Embedding.Dimensions != 1536 || cfg.Embedding.BatchSize != 10 {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Chunking.BufferSize != 10 || cfg.Chunking.Percentile != 95 {
		t.Errorf("chunking defaults: %+v", cfg.Chunking)
	}
	if cfg.Store.Type != "sqlite" {
		t.Errorf("store type = %s", cfg.Store.Type)
	}
	if cfg.Search.TopK != 5 {
		t.Errorf("top_k = %d", cfg.Search.TopK)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
catalog:
  path: "./data/laptops.json"
store:
  path: "./data/db/catalog.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Dir(path)
	if want := filepath.Join(dir, "data", "laptops.json"); cfg.Catalog.Path != want {
		t.Errorf("catalog path = %s, want %s", cfg.Catalog.Path, want)
	}
	if want := filepath.Join(dir, "data", "db", "catalog.db"); cfg.Store.Path != want {
		t.Errorf("store path = %s, want %s", cfg.Store.Path, want)
	}
}

func TestLoad_rejectsPriceFieldOutsideSchema(t *testing.T) {
	path := writeConfig(t, `
catalog:
  fields: ["name", "description"]
  price_field: "price"
  text_field: "description"
`)
	if _, err := Load(path); err == nil {
		t.Error("price field outside the schema should fail validation")
	}
}

func TestLoad_rejectsBadPercentile(t *testing.T) {
	path := writeConfig(t, `
chunking:
  percentile: 250
`)
	if _, err := Load(path); err == nil {
		t.Error("percentile above 100 should fail validation")
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing config file should fail")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	if cfg.Watch.Debounce().Milliseconds() != 500 {
		t.Errorf("debounce = %v", cfg.Watch.Debounce())
	}
	if cfg.Embedding.Timeout().Seconds() != 30 {
		t.Errorf("timeout = %v", cfg.Embedding.Timeout())
	}
}
