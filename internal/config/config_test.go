package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Brew.Bin != "brew" {
		t.Errorf("brew bin = %q", cfg.Brew.Bin)
	}
	if cfg.Install.Workers != 1 {
		t.Errorf("workers = %d, want 1", cfg.Install.Workers)
	}
	if cfg.ReconcileDebounce() != 2*time.Second {
		t.Errorf("debounce = %v", cfg.ReconcileDebounce())
	}
	if cfg.ReconcileInterval() != 5*time.Minute {
		t.Errorf("interval = %v", cfg.ReconcileInterval())
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pakky.toml")
	data := `
[brew]
bin = "/opt/homebrew/bin/brew"

[install]
workers = 3

[reconcile]
debounce_seconds = 10
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Brew.Bin != "/opt/homebrew/bin/brew" {
		t.Errorf("bin = %q", cfg.Brew.Bin)
	}
	if cfg.Install.Workers != 3 {
		t.Errorf("workers = %d", cfg.Install.Workers)
	}
	if cfg.ReconcileDebounce() != 10*time.Second {
		t.Errorf("debounce = %v", cfg.ReconcileDebounce())
	}
	// Unset sections keep defaults.
	if cfg.Reconcile.IntervalSeconds != 300 {
		t.Errorf("interval = %d, want default", cfg.Reconcile.IntervalSeconds)
	}
	if cfg.Scripts.Shell != "/bin/sh" {
		t.Errorf("shell = %q", cfg.Scripts.Shell)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}
