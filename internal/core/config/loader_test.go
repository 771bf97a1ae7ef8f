package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://api.stash.example
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.API.MaxRetries != 3 {
		t.Errorf("API.MaxRetries = %d, want default 3", cfg.API.MaxRetries)
	}
	if cfg.API.RetryBaseDelay.Std() != 500*time.Millisecond {
		t.Errorf("API.RetryBaseDelay = %v, want default 500ms", cfg.API.RetryBaseDelay)
	}
	if cfg.API.RetryMaxDelay.Std() != 30*time.Second {
		t.Errorf("API.RetryMaxDelay = %v, want default 30s", cfg.API.RetryMaxDelay)
	}
	if cfg.API.Timeout.Std() != 30*time.Second {
		t.Errorf("API.Timeout = %v, want default 30s", cfg.API.Timeout)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9091
api:
  base_url: https://api.stash.example
  timeout: 10s
  max_retries: 5
  retry_base_delay: 250ms
  retry_max_delay: 20s
redis:
  url: redis://localhost:6379/0
storage:
  path: /tmp/stash.db
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9091 {
		t.Errorf("Server.Port = %d, want 9091", cfg.Server.Port)
	}
	if cfg.API.MaxRetries != 5 {
		t.Errorf("API.MaxRetries = %d, want 5", cfg.API.MaxRetries)
	}
	if cfg.API.RetryBaseDelay.Std() != 250*time.Millisecond {
		t.Errorf("API.RetryBaseDelay = %v, want 250ms", cfg.API.RetryBaseDelay)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Errorf("Redis.URL = %q", cfg.Redis.URL)
	}
	if cfg.Storage.Path != "/tmp/stash.db" {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_RequiresBaseURL(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9091
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing api.base_url")
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("STASH_BASE_URL", "https://env.stash.example")
	path := writeConfig(t, `
api:
  base_url: ${STASH_BASE_URL}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://env.stash.example" {
		t.Errorf("BaseURL = %q, want env expansion", cfg.API.BaseURL)
	}
}
