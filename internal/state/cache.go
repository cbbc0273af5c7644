package state

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rivenhall/homegraph/internal/stream"
)

// Logger is the logging interface used by the Cache.
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

// Fetcher performs a one-shot state fetch.
type Fetcher interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
}

// StreamOpener opens the long-lived event-stream connection.
type StreamOpener interface {
	OpenStream(ctx context.Context, path string) (*http.Response, error)
}

// Mode selects the cache refresh strategy.
type Mode int

const (
	// ModePoll refreshes with TTL-bounded GET fetches.
	ModePoll Mode = iota

	// ModePush refreshes from the background event-stream listener.
	ModePush
)

// inflight is one refresh shared by every reader that found the cache
// stale while it was running.
type inflight struct {
	done chan struct{}
	snap *Snapshot
	err  error
}

// Cache serves the latest known Snapshot. At most one refresh (fetch or
// stream open) is in flight at a time; readers observe snapshots
// atomically because refreshes replace the pointer wholesale.
type Cache struct {
	mode    Mode
	ttl     time.Duration
	fetcher Fetcher
	opener  StreamOpener
	logger  Logger

	// clock is stubbed in TTL tests.
	clock func() time.Time

	mu        sync.Mutex
	snapshot  *Snapshot
	fetchedAt time.Time
	version   uint64 // listener version the snapshot was decoded from
	listener  *stream.Listener
	flight    *inflight
}

// NewPollCache creates a cache that refetches after ttl has elapsed.
func NewPollCache(fetcher Fetcher, ttl time.Duration) *Cache {
	return &Cache{
		mode:    ModePoll,
		ttl:     ttl,
		fetcher: fetcher,
		logger:  noopLogger{},
		clock:   time.Now,
	}
}

// NewPushCache creates a cache fed by the event stream, with fetcher as
// the fallback for reads that arrive before the first pushed snapshot.
func NewPushCache(opener StreamOpener, fetcher Fetcher) *Cache {
	return &Cache{
		mode:    ModePush,
		opener:  opener,
		fetcher: fetcher,
		logger:  noopLogger{},
		clock:   time.Now,
	}
}

// SetLogger sets the logger for the cache.
func (c *Cache) SetLogger(logger Logger) {
	c.logger = logger
}

// Get returns the current Snapshot, refreshing it when stale. Concurrent
// callers during a refresh share the single in-flight fetch.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()

	if snap, ok := c.freshLocked(); ok {
		c.mu.Unlock()
		return snap, nil
	}

	if f := c.flight; f != nil {
		c.mu.Unlock()
		select {
		case <-f.done:
			return f.snap, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f := &inflight{done: make(chan struct{})}
	c.flight = f
	c.mu.Unlock()

	snap, err := c.refresh(ctx)

	c.mu.Lock()
	if err == nil {
		c.snapshot = snap
		c.fetchedAt = c.clock()
	}
	c.flight = nil
	c.mu.Unlock()

	f.snap, f.err = snap, err
	close(f.done)
	return snap, err
}

// freshLocked reports whether the cached snapshot can be served as-is.
func (c *Cache) freshLocked() (*Snapshot, bool) {
	if c.snapshot == nil {
		return nil, false
	}

	switch c.mode {
	case ModePoll:
		if c.clock().Sub(c.fetchedAt) <= c.ttl {
			return c.snapshot, true
		}
	case ModePush:
		// The cached decode is current while the listener has pushed
		// nothing newer.
		if l := c.listener; l != nil && !l.Done() && l.Version() == c.version {
			return c.snapshot, true
		}
	}
	return nil, false
}

// refresh performs one state transition: a GET fetch in poll mode, or a
// listener read (opening the stream first when needed) in push mode.
func (c *Cache) refresh(ctx context.Context) (*Snapshot, error) {
	if c.mode == ModePoll {
		return c.fetch(ctx)
	}
	return c.refreshFromStream(ctx)
}

func (c *Cache) fetch(ctx context.Context) (*Snapshot, error) {
	raw, err := c.fetcher.Get(ctx, "/")
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}

func (c *Cache) refreshFromStream(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	l := c.listener
	c.mu.Unlock()

	// A terminated listener is replaced; its failure surfaces once.
	if l != nil && l.Done() {
		c.mu.Lock()
		c.listener = nil
		c.mu.Unlock()
		if err := l.Err(); err != nil {
			return nil, err
		}
		l = nil
	}

	if l == nil {
		resp, err := c.opener.OpenStream(ctx, "/")
		if err != nil {
			return nil, err
		}
		l = stream.Listen(resp, c.logger)
		c.mu.Lock()
		c.listener = l
		c.mu.Unlock()
		c.logger.Debug("event stream opened")
	}

	if raw, ok := l.Latest(); ok {
		snap, err := Decode(raw)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.version = l.Version()
		c.mu.Unlock()
		return snap, nil
	}

	if err := l.Err(); err != nil {
		return nil, err
	}

	// Stream is up but has pushed nothing yet (e.g. only the open event
	// arrived); a one-shot fetch bridges the gap.
	c.logger.Debug("stream buffer empty, falling back to fetch")
	return c.fetch(ctx)
}

// Invalidate clears the cached snapshot so the next Get forces a refresh.
// Invoking it repeatedly has no additional effect.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot = nil
	c.fetchedAt = time.Time{}
	c.version = 0
}

// WaitForChange blocks until the pushed snapshot version advances past
// after, returning the version observed. It requires push mode.
func (c *Cache) WaitForChange(after uint64) (uint64, error) {
	c.mu.Lock()
	l := c.listener
	c.mu.Unlock()

	if l == nil {
		return 0, ErrNoStream
	}
	return l.WaitForVersion(after)
}

// Close stops the background stream listener, if any. The cache remains
// usable; the next push-mode read opens a fresh stream.
func (c *Cache) Close() {
	c.mu.Lock()
	l := c.listener
	c.listener = nil
	c.mu.Unlock()

	if l != nil {
		l.Close()
	}
}

// Version returns the version of the most recently pushed snapshot, zero
// when nothing has been pushed.
func (c *Cache) Version() uint64 {
	c.mu.Lock()
	l := c.listener
	c.mu.Unlock()

	if l == nil {
		return 0
	}
	return l.Version()
}
