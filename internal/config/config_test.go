package config

import (
	"path/filepath"
	"testing"
)

func TestLoadOrDefaultMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("load or default: %v", err)
	}
	if cfg.Model != Default().Model {
		t.Fatalf("expected default model, got %q", cfg.Model)
	}
}

func TestApplyEnvOverridesFile(t *testing.T) {
	cfg := Default()
	lookup := func(key string) (string, bool) {
		switch key {
		case "VIBE_MODEL":
			return "custom-model", true
		case "VIBE_MAX_ITERATIONS":
			return "5", true
		}
		return "", false
	}
	cfg.applyEnv(lookup)
	if cfg.Model != "custom-model" {
		t.Fatalf("expected env override of model, got %q", cfg.Model)
	}
	if cfg.MaxIterations != 5 {
		t.Fatalf("expected env override of max_iterations, got %d", cfg.MaxIterations)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.MaxIterations = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero max_iterations")
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.Model = "saved-model"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadOrDefault(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Model != "saved-model" {
		t.Fatalf("expected round-tripped model, got %q", loaded.Model)
	}
}
