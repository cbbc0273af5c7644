package homegraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rivenhall/homegraph/internal/infrastructure/config"
)

// fakeService is a minimal in-memory rendition of the cloud REST API:
// GET / serves the state tree, PUT merges fields into an entity.
type fakeService struct {
	mu    sync.Mutex
	state map[string]any
	gets  int
	puts  int
}

func newFakeService(t *testing.T, raw string) *fakeService {
	t.Helper()
	svc := &fakeService{}
	if err := json.Unmarshal([]byte(raw), &svc.state); err != nil {
		t.Fatalf("decoding fixture: %v", err)
	}
	return svc
}

func (s *fakeService) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.gets++
		json.NewEncoder(w).Encode(s.state)
	})
	r.Put("/devices/{category}/{id}", func(w http.ResponseWriter, req *http.Request) {
		s.put(w, req, "devices/"+chi.URLParam(req, "category"), chi.URLParam(req, "id"))
	})
	r.Put("/structures/{id}", func(w http.ResponseWriter, req *http.Request) {
		s.put(w, req, "structures", chi.URLParam(req, "id"))
	})
	return r
}

func (s *fakeService) put(w http.ResponseWriter, req *http.Request, category, id string) {
	var fields map[string]any
	if err := json.NewDecoder(req.Body).Decode(&fields); err != nil {
		http.Error(w, `{"error": "bad body"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++

	node := s.state
	for _, key := range append(strings.Split(category, "/"), id) {
		child, ok := node[key].(map[string]any)
		if !ok {
			http.Error(w, `{"error": "no such entity"}`, http.StatusNotFound)
			return
		}
		node = child
	}
	for k, v := range fields {
		node[k] = v
	}
	json.NewEncoder(w).Encode(fields)
}

const accountFixture = `{
	"devices": {
		"thermostats": {
			"peach-01": {
				"name": "Hallway",
				"structure_id": "s1",
				"temperature_scale": "C",
				"ambient_temperature_c": 21.5,
				"target_temperature_c": 19.5,
				"hvac_mode": "heat"
			}
		},
		"cameras": {
			"lens-01": {"name": "Porch", "structure_id": "s1", "is_streaming": true}
		}
	},
	"structures": {
		"s1": {"name": "Town House", "away": "home"}
	}
}`

func testClient(t *testing.T, svc *fakeService) *Client {
	t.Helper()

	server := httptest.NewServer(svc.router())
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.API.URL = server.URL
	cfg.Credentials.ClientID = "client-id"
	cfg.Credentials.ClientSecret = "client-secret"
	cfg.Credentials.AccessToken = "token-1"
	cfg.Cache.Mode = config.CacheModePoll
	cfg.Cache.TTL = time.Minute
	cfg.Logging.Output = "discard"

	client, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestClientListsDevices(t *testing.T) {
	svc := newFakeService(t, accountFixture)
	client := testClient(t, svc)
	ctx := context.Background()

	thermostats, err := client.Thermostats(ctx)
	if err != nil {
		t.Fatalf("Thermostats: %v", err)
	}
	if len(thermostats) != 1 {
		t.Fatalf("Thermostats: got %d, want 1", len(thermostats))
	}
	name, err := thermostats[0].Name(ctx)
	if err != nil || name != "Hallway" {
		t.Errorf("Name = %q, %v; want Hallway", name, err)
	}

	cameras, err := client.Cameras(ctx)
	if err != nil || len(cameras) != 1 {
		t.Fatalf("Cameras: %v, %v", cameras, err)
	}

	structures, err := client.Structures(ctx)
	if err != nil || len(structures) != 1 {
		t.Fatalf("Structures: %v, %v", structures, err)
	}

	// All three listings fall inside the poll TTL: one fetch serves them.
	if svc.gets != 1 {
		t.Errorf("state fetched %d times, want 1 (cached within TTL)", svc.gets)
	}
}

func TestClientMutateRoundTrip(t *testing.T) {
	svc := newFakeService(t, accountFixture)
	client := testClient(t, svc)
	ctx := context.Background()

	therm := client.Thermostat("peach-01")
	if _, err := therm.Target(ctx); err != nil {
		t.Fatalf("priming read: %v", err)
	}

	if err := therm.SetTarget(ctx, 22.3); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}
	if svc.puts != 1 {
		t.Fatalf("puts = %d, want 1", svc.puts)
	}

	// The write invalidated the cache, so this read refetches and sees
	// the merged value, rounded to the half degree.
	target, err := therm.Target(ctx)
	if err != nil {
		t.Fatalf("Target after write: %v", err)
	}
	if target != 22.5 {
		t.Errorf("Target = %v, want 22.5", target)
	}
	if svc.gets != 2 {
		t.Errorf("state fetched %d times, want 2 (invalidate forces refetch)", svc.gets)
	}
}

func TestClientAuthorizeURLEmbedsFreshNonce(t *testing.T) {
	client := testClient(t, newFakeService(t, accountFixture))

	first := client.AuthorizeURL()
	second := client.AuthorizeURL()
	if !strings.Contains(first, "client_id=client-id") {
		t.Errorf("AuthorizeURL = %q, missing client id", first)
	}
	if first == second {
		t.Error("consecutive AuthorizeURL calls returned the same state nonce")
	}
}

func TestClientAuthorizationRequired(t *testing.T) {
	svc := newFakeService(t, accountFixture)
	ctx := context.Background()

	client := testClient(t, svc)
	required, err := client.AuthorizationRequired(ctx)
	if err != nil {
		t.Fatalf("AuthorizationRequired: %v", err)
	}
	if required {
		t.Error("authorization reported required with a working token")
	}

	// Without any token the check short-circuits before the network.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("tokenless check should not reach the network")
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.API.URL = server.URL
	cfg.Credentials.ClientID = "client-id"
	cfg.Credentials.ClientSecret = "client-secret"
	cfg.Cache.Mode = config.CacheModePoll
	cfg.Logging.Output = "discard"

	bare, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	required, err = bare.AuthorizationRequired(ctx)
	if err != nil || !required {
		t.Errorf("AuthorizationRequired without token = %v, %v; want true", required, err)
	}
}
