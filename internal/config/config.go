package config

import (
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Brew      BrewConfig      `toml:"brew"`
	Install   InstallConfig   `toml:"install"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Scripts   ScriptsConfig   `toml:"scripts"`
}

type BrewConfig struct {
	// Bin is the brew executable; resolved from PATH when bare.
	Bin string `toml:"bin"`
}

type InstallConfig struct {
	// Workers bounds concurrent installs; 1 means strictly sequential.
	Workers int `toml:"workers"`
}

type ReconcileConfig struct {
	DebounceSeconds int `toml:"debounce_seconds"`
	IntervalSeconds int `toml:"interval_seconds"`
}

type ScriptsConfig struct {
	// TemplatesDir holds user script templates merged over the builtins.
	TemplatesDir string `toml:"templates_dir"`
	// Shell runs interpolated script commands.
	Shell string `toml:"shell"`
}

func Defaults() *Config {
	return &Config{
		Brew:    BrewConfig{Bin: "brew"},
		Install: InstallConfig{Workers: 1},
		Reconcile: ReconcileConfig{
			DebounceSeconds: 2,
			IntervalSeconds: 300,
		},
		Scripts: ScriptsConfig{
			TemplatesDir: TemplatesDir(),
			Shell:        "/bin/sh",
		},
	}
}

func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

func (c *Config) ReconcileDebounce() time.Duration {
	return time.Duration(c.Reconcile.DebounceSeconds) * time.Second
}

func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.Reconcile.IntervalSeconds) * time.Second
}
