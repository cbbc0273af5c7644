package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/rivenhall/homegraph/internal/auth"
)

// Logger is the logging interface used by the transport client.
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

// Signer attaches the authorization header to outgoing requests.
type Signer interface {
	Sign(req *http.Request)
}

// Refresher re-establishes credentials after the remote rejects a token.
// When configured, a 401 triggers one refresh and one retry of the request.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Invalidator is notified after every successful mutating request.
type Invalidator interface {
	Invalidate()
}

// RetryPolicy bounds the rate-limit retry loop.
type RetryPolicy struct {
	// MaxRetries is the ceiling of additional attempts after a 429.
	MaxRetries int

	// DefaultWait applies when Retry-After is absent or unparseable.
	DefaultWait time.Duration
}

// DefaultRetryPolicy mirrors the limits the cloud service documents.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 10, DefaultWait: 5 * time.Second}
}

// Client issues signed requests against the API base URL.
//
// Client is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	signer      Signer
	refresher   Refresher
	invalidator Invalidator
	retry       RetryPolicy
	logger      Logger

	// now is stubbed in tests of the Retry-After date arithmetic.
	now func() time.Time
}

// New creates a transport client. The HTTP client is cloned so redirects
// can be disabled without affecting the caller's client.
func New(baseURL string, httpClient *http.Client, signer Signer, retry RetryPolicy) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	// The API's 307 redirect must be replayed by us, not net/http: the
	// replay keeps the signed header and body byte-identical.
	clone := *httpClient
	clone.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	if retry.DefaultWait <= 0 {
		retry.DefaultWait = DefaultRetryPolicy().DefaultWait
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &clone,
		signer:     signer,
		retry:      retry,
		logger:     noopLogger{},
		now:        time.Now,
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

// SetBaseURL redirects subsequent requests to a different API root. The
// legacy login flow assigns each session a per-user transport endpoint.
// Not safe to call concurrently with in-flight requests.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// SetRefresher configures reactive token refresh on 401 responses.
func (c *Client) SetRefresher(r Refresher) {
	c.refresher = r
}

// SetInvalidator wires the state cache invalidation hook.
func (c *Client) SetInvalidator(inv Invalidator) {
	c.invalidator = inv
}

// Request performs a signed HTTP call and returns the decoded 200 body.
// Redirects are followed once, rate limits retried within the policy, and
// all other failures mapped to the package error taxonomy.
func (c *Client) Request(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("transport: encoding request body: %w", err)
		}
	}

	raw, err := c.roundTrip(ctx, method, c.baseURL+path, payload, nil, false)
	if err != nil && c.refresher != nil {
		var authErr *auth.AuthorizationError
		if errors.As(err, &authErr) {
			if refreshErr := c.refresher.Refresh(ctx); refreshErr != nil {
				return nil, refreshErr
			}
			c.logger.Debug("retrying request after token refresh", "path", path)
			raw, err = c.roundTrip(ctx, method, c.baseURL+path, payload, nil, false)
		}
	}
	return raw, err
}

// Get fetches path and returns the decoded body.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodGet, path, nil)
}

// Put sends fields as a JSON PUT body. The server merges the fields into
// the entity, it does not replace the whole record.
func (c *Client) Put(ctx context.Context, path string, fields any) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodPut, path, fields)
}

// Mutate updates fields of one entity and invalidates the state cache once
// the success response has been observed.
func (c *Client) Mutate(ctx context.Context, category, id string, fields map[string]any) error {
	path := fmt.Sprintf("/%s/%s", category, id)
	if _, err := c.Put(ctx, path, fields); err != nil {
		return err
	}
	if c.invalidator != nil {
		c.invalidator.Invalidate()
	}
	return nil
}

// OpenStream opens a long-lived event-stream GET. The 401/429/307 handling
// matches Request; on success the response is returned with its body open
// for the stream listener to consume.
func (c *Client) OpenStream(ctx context.Context, path string) (*http.Response, error) {
	hdr := http.Header{"Accept": {"text/event-stream"}}

	resp, err := c.sendWithRetry(ctx, http.MethodGet, c.baseURL+path, nil, hdr)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTemporaryRedirect {
		loc, redirErr := redirectTarget(resp)
		drain(resp)
		if redirErr != nil {
			return nil, redirErr
		}
		resp, err = c.sendWithRetry(ctx, http.MethodGet, loc, nil, hdr)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode != http.StatusOK {
		defer drain(resp)
		return nil, c.mapFailure(resp)
	}

	return resp, nil
}

// roundTrip performs one logical request: send with rate-limit retries,
// follow at most one redirect, decode the outcome.
func (c *Client) roundTrip(ctx context.Context, method, rawURL string, body []byte, hdr http.Header, redirected bool) (json.RawMessage, error) {
	resp, err := c.sendWithRetry(ctx, method, rawURL, body, hdr)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusTemporaryRedirect && !redirected {
		loc, redirErr := redirectTarget(resp)
		if redirErr != nil {
			return nil, redirErr
		}
		c.logger.Debug("following redirect", "location", loc)
		return c.roundTrip(ctx, method, loc, body, hdr, true)
	}

	if resp.StatusCode == http.StatusOK {
		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("transport: reading response: %w", readErr)
		}
		return json.RawMessage(data), nil
	}

	return nil, c.mapFailure(resp)
}

// sendWithRetry sends the request, retrying 429 responses with the wait the
// server directed. The returned response is any non-429 outcome, or, once
// the ceiling is exhausted, the last 429 itself.
func (c *Client) sendWithRetry(ctx context.Context, method, rawURL string, body []byte, hdr http.Header) (*http.Response, error) {
	var lastRateLimited *http.Response

	operation := func() (*http.Response, error) {
		resp, err := c.send(ctx, method, rawURL, body, hdr)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if lastRateLimited != nil {
				drain(lastRateLimited)
			}
			lastRateLimited = resp

			wait := c.retryWait(resp.Header.Get("Retry-After"))
			c.logger.Warn("rate limited", "url", rawURL, "wait", wait)
			return nil, &backoff.RetryAfterError{Duration: wait}
		}

		return resp, nil
	}

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.retry.DefaultWait)),
		backoff.WithMaxTries(uint(c.retry.MaxRetries+1)),
	)
	if err != nil {
		var retryAfter *backoff.RetryAfterError
		if errors.As(err, &retryAfter) && lastRateLimited != nil {
			// Retries exhausted: the last 429 becomes a normal error
			// response for the caller to map.
			return lastRateLimited, nil
		}
		return nil, err
	}

	if lastRateLimited != nil {
		drain(lastRateLimited)
	}
	return resp, nil
}

// send issues a single signed request without following redirects.
func (c *Client) send(ctx context.Context, method, rawURL string, body []byte, hdr http.Header) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("transport: building request: %w", err)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.signer != nil {
		c.signer.Sign(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: %s %s: %w", method, rawURL, err)
	}
	return resp, nil
}

// retryWait interprets a Retry-After header value: first as a literal
// number of seconds, then as an HTTP date, else the configured default.
func (c *Client) retryWait(retryAfter string) time.Duration {
	if retryAfter == "" {
		return c.retry.DefaultWait
	}

	if secs, err := strconv.ParseFloat(retryAfter, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		wait := t.Sub(c.now())
		if wait < 0 {
			wait = 0
		}
		return wait
	}

	return c.retry.DefaultWait
}

// mapFailure converts a non-success response into the error taxonomy and
// consumes its body.
func (c *Client) mapFailure(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return &auth.AuthorizationError{
			StatusCode: resp.StatusCode,
			Message:    apiErrorMessage(body),
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    apiErrorMessage(body),
	}
}

// redirectTarget resolves the Location header against the response's
// request URL, so relative redirects work.
func redirectTarget(resp *http.Response) (string, error) {
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Message:    "redirect response without Location header",
		}
	}

	u, err := url.Parse(loc)
	if err != nil {
		return "", fmt.Errorf("transport: parsing redirect location: %w", err)
	}
	if resp.Request != nil && resp.Request.URL != nil {
		u = resp.Request.URL.ResolveReference(u)
	}
	return u.String(), nil
}

// drain discards and closes a response body so the connection can be
// reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain
	resp.Body.Close()
}
