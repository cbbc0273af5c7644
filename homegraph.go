// Package homegraph is a client for the Hearth home-automation cloud
// service. It authenticates, keeps a local snapshot of the remote device
// graph fresh over the server-sent event stream (or TTL-bounded polling),
// and exposes typed views over thermostats, cameras, smoke and CO alarms
// and structures.
//
// The zero-config path:
//
//	client, err := homegraph.New(homegraph.DefaultConfig(), nil)
//	...
//	thermostats, err := client.Thermostats(ctx)
package homegraph

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/rivenhall/homegraph/internal/auth"
	"github.com/rivenhall/homegraph/internal/entity"
	"github.com/rivenhall/homegraph/internal/infrastructure/config"
	"github.com/rivenhall/homegraph/internal/infrastructure/logging"
	"github.com/rivenhall/homegraph/internal/state"
	"github.com/rivenhall/homegraph/internal/transport"
)

// Config is the client configuration. DefaultConfig returns production
// defaults; LoadConfig reads a YAML file with environment overrides.
type Config = config.Config

// Logger is the structured logger the client components share.
type Logger = logging.Logger

// DefaultConfig returns the built-in production configuration.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads a YAML configuration file, applying defaults for
// omitted fields and environment variable overrides on top.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Client is the top-level handle. It owns the authenticator, the signed
// transport, and the state cache, and hands out entity views that read
// through them. Client is safe for concurrent use.
type Client struct {
	cfg    *Config
	logger *Logger

	auth      *auth.Authenticator
	transport *transport.Client
	cache     *state.Cache
}

// New builds a Client from the configuration. A nil logger falls back to
// the configuration's logging settings.
func New(cfg *Config, logger *Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("homegraph: %w", err)
	}
	if logger == nil {
		logger = logging.New(cfg.Logging, Version)
	}

	httpClient := &http.Client{}

	authenticator := auth.New(auth.Config{
		ClientID:       cfg.Credentials.ClientID,
		ClientSecret:   cfg.Credentials.ClientSecret,
		AccessToken:    cfg.Credentials.AccessToken,
		CachePath:      cfg.Credentials.TokenCache,
		AccessTokenURL: cfg.API.AccessTokenURL,
		LoginURL:       cfg.API.LoginURL,
	}, httpClient)
	authenticator.SetLogger(logger.With("component", "auth"))

	tc := transport.New(cfg.API.URL, httpClient, authenticator, transport.RetryPolicy{
		MaxRetries:  cfg.Retry.MaxRetries,
		DefaultWait: cfg.Retry.DefaultWait,
	})
	tc.SetLogger(logger.With("component", "transport"))

	// Legacy logins come back with a per-user transport endpoint that
	// replaces the default API root.
	authenticator.SetObserver(func(res auth.LoginResult) {
		if res.TransportURL != "" {
			tc.SetBaseURL(res.TransportURL)
		}
	})

	var cache *state.Cache
	if cfg.Cache.Mode == config.CacheModePoll {
		cache = state.NewPollCache(tc, cfg.Cache.TTL)
	} else {
		cache = state.NewPushCache(tc, tc)
	}
	cache.SetLogger(logger.With("component", "state"))
	tc.SetInvalidator(cache)

	return &Client{
		cfg:       cfg,
		logger:    logger,
		auth:      authenticator,
		transport: tc,
		cache:     cache,
	}, nil
}

// AuthorizeURL returns the browser URL where the user grants access and
// receives the PIN for RequestToken. Each call embeds a fresh state nonce.
func (c *Client) AuthorizeURL() string {
	return fmt.Sprintf(c.cfg.API.AuthorizeURL, c.cfg.Credentials.ClientID, uuid.NewString())
}

// RequestToken exchanges the authorization PIN for an access token and
// persists it to the token cache.
func (c *Client) RequestToken(ctx context.Context, pin string) error {
	return c.auth.Login(ctx, pin)
}

// LegacyLogin authenticates with a username and password against the
// legacy endpoint. Prefer the AuthorizeURL / RequestToken flow.
func (c *Client) LegacyLogin(ctx context.Context, username, password string) error {
	return c.auth.LegacyLogin(ctx, username, password)
}

// AuthorizationRequired reports whether the user must complete the
// authorization flow: no token is held, or the service rejects the one we
// have.
func (c *Client) AuthorizationRequired(ctx context.Context) (bool, error) {
	if !c.auth.HasToken() {
		return true, nil
	}
	if _, err := c.transport.Get(ctx, "/"); err != nil {
		var authErr *auth.AuthorizationError
		if errors.As(err, &authErr) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// State returns the current snapshot of the device graph, refreshing it
// when stale.
func (c *Client) State(ctx context.Context) (*state.Snapshot, error) {
	return c.cache.Get(ctx)
}

// Set updates fields of one entity and invalidates the snapshot cache.
// The entity views call this; most callers want their typed setters
// instead.
func (c *Client) Set(ctx context.Context, category, id string, fields map[string]any) error {
	return c.transport.Mutate(ctx, category, id, fields)
}

// Thermostat returns a view of the thermostat with the given serial. The
// view is lazy: existence is checked on first read.
func (c *Client) Thermostat(id string) *Thermostat {
	return entity.NewThermostat(c, id)
}

// Thermostats lists views over every thermostat in the account.
func (c *Client) Thermostats(ctx context.Context) ([]*Thermostat, error) {
	snap, err := c.State(ctx)
	if err != nil {
		return nil, err
	}
	ids := snap.DeviceIDs(state.CategoryThermostats)
	out := make([]*Thermostat, 0, len(ids))
	for _, id := range ids {
		out = append(out, entity.NewThermostat(c, id))
	}
	return out, nil
}

// Camera returns a view of the camera with the given serial.
func (c *Client) Camera(id string) *Camera {
	return entity.NewCamera(c, id)
}

// Cameras lists views over every camera in the account.
func (c *Client) Cameras(ctx context.Context) ([]*Camera, error) {
	snap, err := c.State(ctx)
	if err != nil {
		return nil, err
	}
	ids := snap.DeviceIDs(state.CategoryCameras)
	out := make([]*Camera, 0, len(ids))
	for _, id := range ids {
		out = append(out, entity.NewCamera(c, id))
	}
	return out, nil
}

// SmokeCoAlarm returns a view of the alarm with the given serial.
func (c *Client) SmokeCoAlarm(id string) *SmokeCoAlarm {
	return entity.NewSmokeCoAlarm(c, id)
}

// SmokeCoAlarms lists views over every smoke and CO alarm in the account.
func (c *Client) SmokeCoAlarms(ctx context.Context) ([]*SmokeCoAlarm, error) {
	snap, err := c.State(ctx)
	if err != nil {
		return nil, err
	}
	ids := snap.DeviceIDs(state.CategorySmokeCOAlarms)
	out := make([]*SmokeCoAlarm, 0, len(ids))
	for _, id := range ids {
		out = append(out, entity.NewSmokeCoAlarm(c, id))
	}
	return out, nil
}

// Structure returns a view of the structure with the given id.
func (c *Client) Structure(id string) *Structure {
	return entity.NewStructure(c, id)
}

// Structures lists views over every structure in the account.
func (c *Client) Structures(ctx context.Context) ([]*Structure, error) {
	snap, err := c.State(ctx)
	if err != nil {
		return nil, err
	}
	ids := snap.StructureIDs()
	out := make([]*Structure, 0, len(ids))
	for _, id := range ids {
		out = append(out, entity.NewStructure(c, id))
	}
	return out, nil
}

// Invalidate discards the cached snapshot; the next read refreshes.
func (c *Client) Invalidate() {
	c.cache.Invalidate()
}

// Version returns the version of the most recently pushed snapshot. It is
// the starting point for WaitForChange.
func (c *Client) Version() uint64 {
	return c.cache.Version()
}

// WaitForChange blocks until the pushed snapshot version advances past
// after, returning the version observed. Requires the push cache mode.
func (c *Client) WaitForChange(after uint64) (uint64, error) {
	return c.cache.WaitForChange(after)
}

// Close releases the event-stream connection, if one is open.
func (c *Client) Close() {
	c.cache.Close()
}
