package config

import (
	"path/filepath"
	"testing"
)

func TestLoadFromFileDefaultsWhenPathEmpty(t *testing.T) {
	cfg, err := LoadFromFile("")
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadFromFileMissingPath(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "does-not-exist.yaml")); err == nil {
		t.Fatal("expected an error for a missing configuration file")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Server.Port = 9999
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if loaded.Server.Port != 9999 {
		t.Fatalf("Server.Port = %d, want 9999", loaded.Server.Port)
	}
}

func TestLoadFromFileEnvOverride(t *testing.T) {
	t.Setenv("CREDENTIAL_HUB_LOG_LEVEL", "debug")
	cfg, err := LoadFromFile("")
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}
