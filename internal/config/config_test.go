package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir == "" {
		t.Fatal("data dir must default")
	}
	if cfg.Server != "" || cfg.Token != "" {
		t.Fatalf("unexpected values: %+v", cfg)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "data_dir = \"/tmp/tend-test\"\nserver = \"https://file.example\"\ntoken = \"from-file\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TEND_SERVER", "https://env.example")
	t.Setenv("TEND_TOKEN", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/tmp/tend-test" {
		t.Fatalf("data_dir = %q", cfg.DataDir)
	}
	if cfg.Server != "https://env.example" {
		t.Fatalf("env must override file, got %q", cfg.Server)
	}
	if cfg.Token != "from-file" {
		t.Fatalf("empty env must not override, got %q", cfg.Token)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("data_dir = [broken"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
