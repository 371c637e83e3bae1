package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate points HOME at an empty dir so a developer's config is never read.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputDir != "runs" || cfg.Concurrency != 1 || cfg.Log.Level != "info" || cfg.Storage.Type != "fs" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.HistoryPath() != filepath.Join("runs", "history.db") {
		t.Errorf("history path = %s", cfg.HistoryPath())
	}
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
output_dir: /tmp/evidence
concurrency: 4
log:
  level: DEBUG
storage:
  type: s3
  s3:
    bucket: audit-bucket
    region: eu-west-1
    endpoint: http://localhost:9000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputDir != "/tmp/evidence" || cfg.Concurrency != 4 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("level should be normalized, got %q", cfg.Log.Level)
	}
	ac := cfg.ArtifactConfig()
	if ac.Type != "s3" || ac.S3.Bucket != "audit-bucket" || ac.S3.Endpoint != "http://localhost:9000" {
		t.Errorf("artifact config = %+v", ac)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("GUARDSIM_CONCURRENCY", "8")
	t.Setenv("GUARDSIM_LOG_LEVEL", "warn")
	t.Setenv("GUARDSIM_STORAGE_TYPE", "s3")
	t.Setenv("GUARDSIM_STORAGE_S3_BUCKET", "from-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Concurrency != 8 || cfg.Log.Level != "warn" || cfg.Storage.S3.Bucket != "from-env" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"negative concurrency", func(c *Config) { c.Concurrency = -1 }, "concurrency"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"empty log format defaults", func(c *Config) { c.Log.Format = "" }, ""},
		{"bad storage", func(c *Config) { c.Storage.Type = "gcs" }, "storage.type"},
		{"s3 without bucket", func(c *Config) { c.Storage.Type = "s3" }, "storage.s3.bucket"},
		{"zero concurrency defaults", func(c *Config) { c.Concurrency = 0 }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
