package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	schemeBearer = "Bearer"
	schemeBasic  = "Basic"
)

// Logger is the logging interface used by the Authenticator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config carries the credentials and endpoints the Authenticator needs.
type Config struct {
	ClientID     string
	ClientSecret string

	// AccessToken, when set, is used as-is and suppresses the cache load.
	AccessToken string

	// CachePath is the token cache file. Empty disables persistence.
	CachePath string

	// AccessTokenURL is the OAuth2 token-exchange endpoint.
	AccessTokenURL string

	// LoginURL is the legacy username/password endpoint.
	LoginURL string
}

// Authenticator performs login, signs requests and persists tokens.
type Authenticator struct {
	cfg        Config
	httpClient *http.Client
	logger     Logger

	mu       sync.Mutex
	result   LoginResult
	observer Observer
}

// New creates an Authenticator. If a cache file exists and no explicit
// access token was supplied, the cached token is loaded before any network
// call; a corrupt or unreadable cache is treated as a miss.
func New(cfg Config, httpClient *http.Client) *Authenticator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	a := &Authenticator{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     noopLogger{},
	}

	if cfg.AccessToken != "" {
		a.result = LoginResult{
			Token:  Token{AccessToken: cfg.AccessToken},
			Scheme: schemeBearer,
		}
		return a
	}

	if cfg.CachePath != "" {
		a.loadCache()
	}

	return a
}

// SetLogger sets the logger for the Authenticator.
func (a *Authenticator) SetLogger(logger Logger) {
	a.logger = logger
}

// SetObserver registers the login observer. If a token was already loaded
// from the cache, the observer is invoked immediately with it.
func (a *Authenticator) SetObserver(obs Observer) {
	a.mu.Lock()
	a.observer = obs
	res := a.result
	a.mu.Unlock()

	if obs != nil && res.AccessToken != "" {
		obs(res)
	}
}

// AccessToken returns the current token, or the empty string when no login
// has happened yet.
func (a *Authenticator) AccessToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result.AccessToken
}

// HasToken reports whether a token is available for signing.
func (a *Authenticator) HasToken() bool {
	return a.AccessToken() != ""
}

// Expired reports whether the current token's reported lifetime has elapsed.
func (a *Authenticator) Expired(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result.Token.Expired(now)
}

// Sign attaches the authorization header to req. Requests without a token
// are left unsigned and will be rejected downstream as unauthorized.
func (a *Authenticator) Sign(req *http.Request) {
	a.mu.Lock()
	token := a.result.AccessToken
	scheme := a.result.Scheme
	a.mu.Unlock()

	if token == "" {
		return
	}
	if scheme == "" {
		scheme = schemeBearer
	}
	req.Header.Set("Authorization", scheme+" "+token)
}

// Login exchanges the authorization PIN for an access token using the
// OAuth2 authorization_code grant. On success the token is persisted and
// the observer notified.
func (a *Authenticator) Login(ctx context.Context, pin string) error {
	form := url.Values{
		"client_id":     {a.cfg.ClientID},
		"client_secret": {a.cfg.ClientSecret},
		"code":          {pin},
		"grant_type":    {"authorization_code"},
	}

	body, err := a.postForm(ctx, a.cfg.AccessTokenURL, form)
	if err != nil {
		return err
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("auth: decoding token response: %w", err)
	}
	if payload.AccessToken == "" {
		return &AuthorizationError{Message: "token endpoint returned no access token"}
	}

	res := LoginResult{
		Token: Token{
			AccessToken: payload.AccessToken,
			ExpiresIn:   payload.ExpiresIn,
			ObtainedAt:  time.Now().UTC(),
		},
		Scheme: schemeBearer,
	}

	a.install(res)
	a.logger.Info("access token obtained", "expires_in", payload.ExpiresIn)
	return nil
}

// LegacyLogin authenticates against the legacy username/password endpoint.
// The response carries the tenant transport URL and user identity; signing
// switches to the Basic scheme the legacy API expects.
func (a *Authenticator) LegacyLogin(ctx context.Context, username, password string) error {
	form := url.Values{
		"username": {username},
		"password": {password},
	}

	body, err := a.postForm(ctx, a.cfg.LoginURL, form)
	if err != nil {
		return err
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		UserID      string `json:"userid"`
		Email       string `json:"email"`
		URLs        struct {
			TransportURL string `json:"transport_url"`
		} `json:"urls"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("auth: decoding login response: %w", err)
	}
	if payload.AccessToken == "" {
		return &AuthorizationError{Message: "login endpoint returned no access token"}
	}

	res := LoginResult{
		Token: Token{
			AccessToken: payload.AccessToken,
			ObtainedAt:  time.Now().UTC(),
		},
		UserID:       payload.UserID,
		Email:        payload.Email,
		TransportURL: payload.URLs.TransportURL,
		Scheme:       schemeBasic,
	}

	a.install(res)
	a.logger.Info("legacy login succeeded", "userid", payload.UserID)
	return nil
}

// postForm issues the credential exchange and maps non-200 responses to
// AuthorizationError with the remote diagnostic when present.
func (a *Authenticator) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("auth: building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: login request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("auth: reading login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &AuthorizationError{
			StatusCode: resp.StatusCode,
			Message:    authFailureMessage(body),
		}
	}

	return body, nil
}

// authFailureMessage extracts error_description from a rejection body,
// falling back to a generic message.
func authFailureMessage(body []byte) string {
	if len(body) > 0 {
		var payload struct {
			ErrorDescription string `json:"error_description"`
		}
		if err := json.Unmarshal(body, &payload); err == nil && payload.ErrorDescription != "" {
			return payload.ErrorDescription
		}
	}
	return "authorization failed"
}

// install stores the result, persists it and notifies the observer.
func (a *Authenticator) install(res LoginResult) {
	a.mu.Lock()
	a.result = res
	obs := a.observer
	a.mu.Unlock()

	if err := a.persist(res); err != nil {
		a.logger.Warn("persisting token cache failed", "error", err)
	}

	if obs != nil {
		obs(res)
	}
}

// persist writes the login result to the cache file with owner-only
// permissions, replacing it atomically.
func (a *Authenticator) persist(res LoginResult) error {
	if a.cfg.CachePath == "" {
		return nil
	}

	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding token cache: %w", err)
	}

	dir := filepath.Dir(a.cfg.CachePath)
	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("creating token cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("restricting token cache permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing token cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing token cache: %w", err)
	}

	if err := os.Rename(tmp.Name(), a.cfg.CachePath); err != nil {
		return fmt.Errorf("replacing token cache: %w", err)
	}
	return nil
}

// loadCache reads a previously persisted login result. Failures are soft:
// the caller simply starts unauthenticated.
func (a *Authenticator) loadCache() {
	data, err := os.ReadFile(a.cfg.CachePath)
	if err != nil {
		if !os.IsNotExist(err) {
			a.logger.Warn("reading token cache failed", "error", err)
		}
		return
	}

	var res LoginResult
	if err := json.Unmarshal(data, &res); err != nil {
		a.logger.Warn("token cache is corrupt, ignoring", "error", err)
		return
	}
	if res.AccessToken == "" {
		return
	}
	if res.Scheme == "" {
		res.Scheme = schemeBearer
	}

	a.result = res
}
