package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"pressbox/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := config.NormalizeForTest(&cfg); err != nil {
		t.Fatalf("normalize default config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	doc := `
[paths]
staging_dir = "` + filepath.Join(dir, "staging") + `"
output_dir = "` + filepath.Join(dir, "output") + `"

[pipeline]
workers = 4
default_profile = "fast"
codec_preference = ["libvpx-vp9"]

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Pipeline.Workers != 4 {
		t.Fatalf("workers = %d, want 4", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.DefaultProfile != "fast" {
		t.Fatalf("default profile = %q, want fast", cfg.Pipeline.DefaultProfile)
	}
	if len(cfg.Pipeline.CodecPreference) != 1 || cfg.Pipeline.CodecPreference[0] != "libvpx-vp9" {
		t.Fatalf("codec preference = %v", cfg.Pipeline.CodecPreference)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("log format = %q, want json", cfg.Logging.Format)
	}
}

func TestLoadRejectsBadLogFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	doc := `
[logging]
format = "xml"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected unsupported log format to fail validation")
	}
}

func TestNormalizeFillsPipelineDefaults(t *testing.T) {
	cfg := config.Config{}
	cfg.Paths.StagingDir = t.TempDir()
	cfg.Paths.OutputDir = t.TempDir()
	if err := config.NormalizeForTest(&cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Pipeline.Workers <= 0 {
		t.Fatal("expected workers default")
	}
	if len(cfg.Pipeline.CodecPreference) == 0 {
		t.Fatal("expected codec preference default")
	}
	if cfg.ProbeTimeout() <= 0 {
		t.Fatal("expected probe timeout default")
	}
	if cfg.AudioTimeout() <= 0 {
		t.Fatal("expected audio timeout default")
	}
}
