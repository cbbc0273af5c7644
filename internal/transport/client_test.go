package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rivenhall/homegraph/internal/auth"
)

type staticSigner struct{ token string }

func (s staticSigner) Sign(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.token)
}

type countingInvalidator struct{ calls atomic.Int32 }

func (c *countingInvalidator) Invalidate() { c.calls.Add(1) }

func newTestClient(t *testing.T, handler http.Handler, retry RetryPolicy) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL, srv.Client(), staticSigner{token: "tok"}, retry)
	return c, srv
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, DefaultWait: 20 * time.Millisecond}
}

func TestRequestReturnsDecodedBody(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		if got := req.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q, want signed request", got)
		}
		w.Write([]byte(`{"devices":{}}`))
	})

	c, _ := newTestClient(t, r, fastRetry())

	raw, err := c.Get(context.Background(), "/")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if _, ok := decoded["devices"]; !ok {
		t.Errorf("body = %s, want devices key", raw)
	}
}

func TestRedirectReplaysMethodAndBody(t *testing.T) {
	var gotMethod, gotBody, gotAuth string

	r := chi.NewRouter()
	r.Put("/devices/thermostats/t1", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/v2/devices/thermostats/t1", http.StatusTemporaryRedirect)
	})
	r.Put("/v2/devices/thermostats/t1", func(w http.ResponseWriter, req *http.Request) {
		gotMethod = req.Method
		body, _ := io.ReadAll(req.Body)
		gotBody = string(body)
		gotAuth = req.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	})

	c, _ := newTestClient(t, r, fastRetry())

	_, err := c.Put(context.Background(), "/devices/thermostats/t1",
		map[string]any{"hvac_mode": "heat"})
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("redirected method = %q, want PUT", gotMethod)
	}
	if gotBody != `{"hvac_mode":"heat"}` {
		t.Errorf("redirected body = %q", gotBody)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("redirected Authorization = %q", gotAuth)
	}
}

func TestRedirectFollowedOnlyOnce(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/hop1", http.StatusTemporaryRedirect)
	})
	r.Get("/hop1", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/hop2", http.StatusTemporaryRedirect)
	})

	c, _ := newTestClient(t, r, fastRetry())

	_, err := c.Get(context.Background(), "/")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Get() error = %v, want *APIError after second redirect", err)
	}
	if apiErr.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("StatusCode = %d, want the unfollowed 307", apiErr.StatusCode)
	}
}

func TestRateLimitHonoursNumericRetryAfter(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0.05")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	})

	c, _ := newTestClient(t, r, fastRetry())

	start := time.Now()
	raw, err := c.Get(context.Background(), "/")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("retried after %v, want >= Retry-After of 50ms", elapsed)
	}
	if string(raw) != `{"ok":true}` {
		t.Errorf("body = %s", raw)
	}
	if calls.Load() != 2 {
		t.Errorf("server calls = %d, want 2", calls.Load())
	}
}

func TestRateLimitGarbageRetryAfterUsesDefaultWait(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "soon-ish")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	})

	c, _ := newTestClient(t, r, RetryPolicy{MaxRetries: 2, DefaultWait: 60 * time.Millisecond})

	start := time.Now()
	if _, err := c.Get(context.Background(), "/"); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("retried after %v, want >= default wait of 60ms", elapsed)
	}
}

func TestRateLimitExhaustionBecomesAPIError(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0.01")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"blocked"}`))
	})

	c, _ := newTestClient(t, r, RetryPolicy{MaxRetries: 2, DefaultWait: 10 * time.Millisecond})

	_, err := c.Get(context.Background(), "/")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Get() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", apiErr.StatusCode)
	}
	if apiErr.Message != "blocked" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if calls.Load() != 3 {
		t.Errorf("server calls = %d, want initial + 2 retries", calls.Load())
	}
}

func TestRetryWaitInterpretation(t *testing.T) {
	c := New("http://unused", nil, nil, RetryPolicy{MaxRetries: 1, DefaultWait: 5 * time.Second})
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"numeric seconds", "2", 2 * time.Second},
		{"fractional seconds", "1.5", 1500 * time.Millisecond},
		{"http date", now.Add(3 * time.Second).Format(http.TimeFormat), 3 * time.Second},
		{"http date in the past", now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"garbage", "whenever", 5 * time.Second},
		{"empty", "", 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.retryWait(tt.header); got != tt.want {
				t.Errorf("retryWait(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestUnauthorizedMapsToAuthorizationError(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
	})

	c, _ := newTestClient(t, r, fastRetry())

	_, err := c.Get(context.Background(), "/")
	var authErr *auth.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("Get() error = %v, want *auth.AuthorizationError", err)
	}
}

type refreshSigner struct {
	token     string
	refreshed atomic.Int32
}

func (r *refreshSigner) Sign(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+r.token)
}

func (r *refreshSigner) Refresh(context.Context) error {
	r.refreshed.Add(1)
	r.token = "fresh"
	return nil
}

func TestUnauthorizedRetriedOnceAfterRefresh(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{}`))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	signer := &refreshSigner{token: "stale"}
	c := New(srv.URL, srv.Client(), signer, fastRetry())
	c.SetRefresher(signer)

	if _, err := c.Get(context.Background(), "/"); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if signer.refreshed.Load() != 1 {
		t.Errorf("refresh calls = %d, want 1", signer.refreshed.Load())
	}
}

func TestOtherErrorsMapToAPIError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{"server error with message", http.StatusInternalServerError, `{"error":"boom"}`, "boom"},
		{"client error empty body", http.StatusBadRequest, "", "API error occurred"},
		{"undecodable body", http.StatusBadGateway, "<html>", "API error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/", func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			c, _ := newTestClient(t, r, fastRetry())

			_, err := c.Get(context.Background(), "/")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Get() error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
		})
	}
}

func TestMutateInvalidatesCacheOnSuccessOnly(t *testing.T) {
	r := chi.NewRouter()
	r.Put("/devices/thermostats/ok", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{}`))
	})
	r.Put("/devices/thermostats/bad", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"mode must be switched first"}`))
	})

	c, _ := newTestClient(t, r, fastRetry())
	inv := &countingInvalidator{}
	c.SetInvalidator(inv)

	if err := c.Mutate(context.Background(), "devices/thermostats", "ok",
		map[string]any{"target_temperature_c": 21.5}); err != nil {
		t.Fatalf("Mutate() error: %v", err)
	}
	if inv.calls.Load() != 1 {
		t.Errorf("invalidations after success = %d, want 1", inv.calls.Load())
	}

	err := c.Mutate(context.Background(), "devices/thermostats", "bad",
		map[string]any{"target_temperature_c": 21.5})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Mutate() error = %v, want *APIError", err)
	}
	if inv.calls.Load() != 1 {
		t.Errorf("invalidations after failure = %d, want unchanged", inv.calls.Load())
	}
}

func TestOpenStreamAppliesRedirectAndAcceptHeader(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/tenant/stream", http.StatusTemporaryRedirect)
	})
	r.Get("/tenant/stream", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Accept") != "text/event-stream" {
			w.WriteHeader(http.StatusNotAcceptable)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("event: open\ndata: null\n\n"))
	})

	c, _ := newTestClient(t, r, fastRetry())

	resp, err := c.OpenStream(context.Background(), "/")
	if err != nil {
		t.Fatalf("OpenStream() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 after redirect", resp.StatusCode)
	}
}
