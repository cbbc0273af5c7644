package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Homegraph client.
// All configuration is loaded from YAML and can be overridden by environment
// variables.
type Config struct {
	API         APIConfig         `yaml:"api"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Cache       CacheConfig       `yaml:"cache"`
	Retry       RetryConfig       `yaml:"retry"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// APIConfig contains the remote endpoint URLs. The defaults point at the
// production cloud service; tests override them with local fixtures.
type APIConfig struct {
	// URL is the base REST endpoint for state reads and writes.
	URL string `yaml:"url"`

	// AccessTokenURL is the OAuth2 token-exchange endpoint.
	AccessTokenURL string `yaml:"access_token_url"`

	// AuthorizeURL is the browser authorization page template. It is
	// formatted with the client id and a random state nonce.
	AuthorizeURL string `yaml:"authorize_url"`

	// LoginURL is the legacy username/password endpoint. Only consulted by
	// the legacy login fallback.
	LoginURL string `yaml:"login_url"`
}

// CredentialsConfig contains OAuth2 client credentials and token storage.
type CredentialsConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// AccessToken, when set, is used directly and the token cache file is
	// ignored on startup.
	AccessToken string `yaml:"access_token"`

	// TokenCache is the path of the on-disk token cache file. Empty disables
	// persistence.
	TokenCache string `yaml:"token_cache"`
}

// CacheConfig controls the state cache refresh strategy.
type CacheConfig struct {
	// Mode is "push" (server-sent event stream, default) or "poll"
	// (TTL-bounded GET refresh).
	Mode string `yaml:"mode"`

	// TTL bounds snapshot staleness in poll mode.
	TTL time.Duration `yaml:"ttl"`
}

// RetryConfig bounds the rate-limit retry loop.
type RetryConfig struct {
	// MaxRetries is the ceiling of additional attempts after a 429.
	MaxRetries int `yaml:"max_retries"`

	// DefaultWait is used when the Retry-After header is absent or
	// unparseable.
	DefaultWait time.Duration `yaml:"default_wait"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// CacheModePush and CacheModePoll are the accepted cache modes.
const (
	CacheModePush = "push"
	CacheModePoll = "poll"
)

// defaultConfig returns the configuration used before any file or
// environment override is applied.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			URL:            "https://developer-api.hearth.example.com",
			AccessTokenURL: "https://api.hearth.example.com/oauth2/access_token",
			AuthorizeURL:   "https://home.hearth.example.com/login/oauth2?client_id=%s&state=%s",
			LoginURL:       "https://home.hearth.example.com/user/login",
		},
		Cache: CacheConfig{
			Mode: CacheModePush,
			TTL:  4 * time.Minute,
		},
		Retry: RetryConfig{
			MaxRetries:  10,
			DefaultWait: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	return defaultConfig()
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides lets deployment environments inject credentials without
// writing them to the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOMEGRAPH_CLIENT_ID"); v != "" {
		cfg.Credentials.ClientID = v
	}
	if v := os.Getenv("HOMEGRAPH_CLIENT_SECRET"); v != "" {
		cfg.Credentials.ClientSecret = v
	}
	if v := os.Getenv("HOMEGRAPH_ACCESS_TOKEN"); v != "" {
		cfg.Credentials.AccessToken = v
	}
	if v := os.Getenv("HOMEGRAPH_TOKEN_CACHE"); v != "" {
		cfg.Credentials.TokenCache = v
	}
	if v := os.Getenv("HOMEGRAPH_API_URL"); v != "" {
		cfg.API.URL = v
	}
}

// Validate checks the configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("config: api.url must not be empty")
	}

	switch c.Cache.Mode {
	case CacheModePush, CacheModePoll:
	default:
		return fmt.Errorf("config: cache.mode must be %q or %q, got %q",
			CacheModePush, CacheModePoll, c.Cache.Mode)
	}

	if c.Cache.Mode == CacheModePoll && c.Cache.TTL <= 0 {
		return fmt.Errorf("config: cache.ttl must be positive in poll mode")
	}

	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("config: retry.max_retries must not be negative")
	}
	if c.Retry.DefaultWait <= 0 {
		return fmt.Errorf("config: retry.default_wait must be positive")
	}

	return nil
}
