// Package config reads ~/.config/tend/config.toml and applies environment
// overrides. Flags are resolved by the CLI layer and win over both.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config captures settings from config.toml.
type Config struct {
	// DataDir holds the local database and attachments.
	DataDir string `toml:"data_dir"`

	// Server switches the gateway to a hosted sync server when set.
	Server string `toml:"server"`
	Token  string `toml:"token"`

	// AssistKey enables AI title correction and categorization.
	AssistKey string `toml:"assist_key"`
}

// DefaultPath resolves the per-user config file location.
func DefaultPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "tend", "config.toml")
}

// DefaultDataDir is used when neither config nor flags set one.
func DefaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "tend", "data")
}

// Load reads path (DefaultPath when empty) and applies TEND_SERVER,
// TEND_TOKEN and TEND_ASSIST_KEY overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("TEND_SERVER"); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv("TEND_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("TEND_ASSIST_KEY"); v != "" {
		cfg.AssistKey = v
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	return cfg, nil
}
