package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("default address: %s", cfg.Server.Address)
	}
	if cfg.Engine.MaxPathLength != 12 {
		t.Fatalf("default max path length: %d", cfg.Engine.MaxPathLength)
	}
	if cfg.Engine.ActiveThreshold != 0.65 || cfg.Engine.WeakThreshold != 0.35 {
		t.Fatalf("default thresholds: %+v", cfg.Engine)
	}
	if cfg.Storage.Path != "inquest.db" {
		t.Fatalf("default storage path: %s", cfg.Storage.Path)
	}
	if cfg.Cache.Enabled {
		t.Fatalf("cache must default to disabled")
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  address: ":9090"
engine:
  maxPathLength: 6
cache:
  enabled: true
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Fatalf("file must override address, got %s", cfg.Server.Address)
	}
	if cfg.Engine.MaxPathLength != 6 {
		t.Fatalf("file must override maxPathLength, got %d", cfg.Engine.MaxPathLength)
	}
	if !cfg.Cache.Enabled {
		t.Fatalf("file must enable the cache")
	}
	// Untouched keys keep their defaults.
	if cfg.Engine.RecencyDecay != 0.85 {
		t.Fatalf("recencyDecay default lost: %f", cfg.Engine.RecencyDecay)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("does/not/exist.yaml"); err == nil {
		t.Fatalf("explicit missing file must error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("INQUEST_SERVER_ADDRESS", ":7070")
	t.Setenv("INQUEST_MAX_PATH_LENGTH", "8")
	t.Setenv("INQUEST_LABELER_ENABLED", "true")
	t.Setenv("INQUEST_LOG_FORMAT", "json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Fatalf("env address override: %s", cfg.Server.Address)
	}
	if cfg.Engine.MaxPathLength != 8 {
		t.Fatalf("env max path length override: %d", cfg.Engine.MaxPathLength)
	}
	if !cfg.Labeler.Enabled {
		t.Fatalf("env labeler enable")
	}
	if !cfg.Logging.JSON {
		t.Fatalf("env log format override")
	}
}
