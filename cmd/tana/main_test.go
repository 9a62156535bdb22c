package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fnly/tana/internal/embedding"
	"github.com/fnly/tana/internal/store"
)

func TestLoadConfig_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tana.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path {
		t.Errorf("resolved = %s", resolved)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing config should fail")
	}
}

// wrongDimsEmbedder claims a dimensionality it does not produce.
type wrongDimsEmbedder struct{ *embedding.MockEmbedder }

func (e *wrongDimsEmbedder) Dimensions() int { return 1536 }

func TestStartupChecks(t *testing.T) {
	st, err := store.NewMemoryStore(8, "price")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := startupChecks(ctx, st, embedding.NewMockEmbedder(8), 8); err != nil {
		t.Errorf("healthy components failed checks: %v", err)
	}

	err = startupChecks(ctx, st, &wrongDimsEmbedder{embedding.NewMockEmbedder(8)}, 1536)
	if err == nil {
		t.Fatal("mismatched embedder dimensions should fail startup")
	}
	if !strings.Contains(err.Error(), "embedding provider check failed") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadConfig_DefaultFallsBackToCwd(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 7777\n"), 0600); err != nil {
		t.Fatal(err)
	}
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(oldwd) }()

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(resolved) != "config.yaml" {
		t.Errorf("resolved = %s", resolved)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}
