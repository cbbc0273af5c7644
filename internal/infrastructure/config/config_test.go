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
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  url: http://localhost:9300
credentials:
  client_id: cid
  client_secret: secret
cache:
  mode: poll
  ttl: 30s
retry:
  max_retries: 3
  default_wait: 1s
logging:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.API.URL != "http://localhost:9300" {
		t.Errorf("API.URL = %q", cfg.API.URL)
	}
	if cfg.Cache.Mode != CacheModePoll || cfg.Cache.TTL != 30*time.Second {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Retry.MaxRetries != 3 || cfg.Retry.DefaultWait != time.Second {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	// Defaults survive for fields the file omits.
	if cfg.API.AccessTokenURL == "" {
		t.Error("AccessTokenURL default was lost")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() with missing file did not error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOMEGRAPH_CLIENT_ID", "env-cid")
	t.Setenv("HOMEGRAPH_ACCESS_TOKEN", "env-token")

	path := writeConfig(t, `
credentials:
  client_id: file-cid
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Credentials.ClientID != "env-cid" {
		t.Errorf("ClientID = %q, want env override", cfg.Credentials.ClientID)
	}
	if cfg.Credentials.AccessToken != "env-token" {
		t.Errorf("AccessToken = %q, want env override", cfg.Credentials.AccessToken)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"empty api url", func(c *Config) { c.API.URL = "" }, true},
		{"bad cache mode", func(c *Config) { c.Cache.Mode = "streaming" }, true},
		{"poll without ttl", func(c *Config) { c.Cache.Mode = CacheModePoll; c.Cache.TTL = 0 }, true},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }, true},
		{"zero default wait", func(c *Config) { c.Retry.DefaultWait = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
