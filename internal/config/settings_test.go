package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPathDefaults(t *testing.T) {
	t.Setenv("CONDUIT_BASE_URL", "")
	t.Setenv("CONDUIT_TENANT", "")

	cfg, err := loadFromPath(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("loadFromPath: %v", err)
	}
	if cfg.BaseURL() != "http://127.0.0.1:8000" {
		t.Fatalf("base url = %q", cfg.BaseURL())
	}
	if cfg.LogLevel() != "info" {
		t.Fatalf("log level = %q", cfg.LogLevel())
	}
	if cfg.RequestTimeout() != 10*time.Second {
		t.Fatalf("timeout = %v", cfg.RequestTimeout())
	}
	if cfg.StreamDebugEnabled() {
		t.Fatalf("stream debug should default off")
	}
}

func TestLoadFromPathFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[backend]
base_url = "https://agents.example.com/"
tenant = "acme"
request_timeout = "30s"

[logging]
level = "debug"

[debug]
stream_debug = true
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONDUIT_BASE_URL", "")
	t.Setenv("CONDUIT_TENANT", "")
	cfg, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("loadFromPath: %v", err)
	}
	if cfg.BaseURL() != "https://agents.example.com" {
		t.Fatalf("base url = %q", cfg.BaseURL())
	}
	if cfg.Tenant() != "acme" {
		t.Fatalf("tenant = %q", cfg.Tenant())
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Fatalf("timeout = %v", cfg.RequestTimeout())
	}
	if !cfg.StreamDebugEnabled() {
		t.Fatalf("stream debug should be on")
	}

	t.Setenv("CONDUIT_BASE_URL", "https://other.example.com")
	t.Setenv("CONDUIT_TENANT", "globex")
	cfg, err = loadFromPath(path)
	if err != nil {
		t.Fatalf("loadFromPath with env: %v", err)
	}
	if cfg.BaseURL() != "https://other.example.com" {
		t.Fatalf("env base url not applied: %q", cfg.BaseURL())
	}
	if cfg.Tenant() != "globex" {
		t.Fatalf("env tenant not applied: %q", cfg.Tenant())
	}
}

func TestRequestTimeoutRejectsGarbage(t *testing.T) {
	cfg := Default()
	cfg.Backend.RequestTimeout = "soon"
	if cfg.RequestTimeout() != 10*time.Second {
		t.Fatalf("garbage timeout should fall back, got %v", cfg.RequestTimeout())
	}
}
