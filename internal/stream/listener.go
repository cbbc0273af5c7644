package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rivenhall/homegraph/internal/auth"
	"github.com/rivenhall/homegraph/internal/transport"
)

// Event types the cloud service emits.
const (
	eventOpen        = "open"
	eventKeepAlive   = "keep-alive"
	eventPut         = "put"
	eventAuthRevoked = "auth_revoked"
	eventError       = "error"
)

// bufferDepth bounds the snapshot buffer: only the newest and the previous
// pushed snapshot are retained.
const bufferDepth = 2

// readyTimeout bounds the wait for the first event after opening, so the
// opening caller does not block indefinitely on a silent remote.
const readyTimeout = 10 * time.Second

// Logger is the logging interface used by the Listener.
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

// Listener consumes one open event-stream response on a background
// goroutine and hands the latest snapshot payload to readers.
//
// A Listener never reconnects: once the stream terminates the listener is
// dead and Err() reports why. All methods are safe for concurrent use.
type Listener struct {
	body   io.ReadCloser
	logger Logger

	mu      sync.Mutex
	cond    *sync.Cond
	buffer  []json.RawMessage // newest first, at most bufferDepth entries
	version uint64
	err     error
	done    bool
	closing bool

	readyOnce sync.Once
	ready     chan struct{}
}

// Listen starts a listener over an open event-stream response and waits,
// bounded by the readiness timeout, for the first event of any kind.
func Listen(resp *http.Response, logger Logger) *Listener {
	if logger == nil {
		logger = noopLogger{}
	}

	l := &Listener{
		body:   resp.Body,
		logger: logger,
		ready:  make(chan struct{}),
	}
	l.cond = sync.NewCond(&l.mu)

	go l.run()

	select {
	case <-l.ready:
	case <-time.After(readyTimeout):
		l.logger.Warn("stream produced no event before readiness timeout")
	}

	return l
}

// run is the background event loop. It terminates on the first stream
// failure or terminal event and never restarts.
func (l *Listener) run() {
	defer l.close()

	p := newParser(l.body)
	for {
		event, err := p.Next()
		if err != nil {
			if err != io.EOF {
				l.fail(fmt.Errorf("stream: reading events: %w", err))
			}
			return
		}

		switch event.Type {
		case eventOpen, eventKeepAlive:
			// Liveness only.
		case eventPut:
			if err := l.push([]byte(event.Data)); err != nil {
				l.fail(err)
				l.signalReady()
				return
			}
		case eventAuthRevoked:
			l.fail(&auth.AuthorizationError{Message: "auth token has been revoked"})
			l.signalReady()
			return
		case eventError:
			l.fail(&transport.APIError{Message: event.Data})
			l.signalReady()
			return
		default:
			l.logger.Debug("ignoring unknown stream event", "type", event.Type)
		}

		l.signalReady()
	}
}

// push unwraps a put event's {"path", "data"} envelope, stores the snapshot
// as the newest entry and wakes readers.
func (l *Listener) push(payload []byte) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("stream: decoding put event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.buffer = append([]json.RawMessage{envelope.Data}, l.buffer...)
	if len(l.buffer) > bufferDepth {
		l.buffer = l.buffer[:bufferDepth]
	}
	l.version++
	l.cond.Broadcast()
	return nil
}

// fail records the terminal error and wakes any blocked reader.
func (l *Listener) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// A read error caused by Close is a clean shutdown, not a failure.
	if l.closing {
		return
	}
	if l.err == nil {
		l.err = err
	}
	l.cond.Broadcast()
}

// close releases the connection and clears the buffer.
func (l *Listener) close() {
	l.body.Close()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.buffer = nil
	l.done = true
	l.cond.Broadcast()
}

// Close tears down the connection. The background loop exits on the
// resulting read error, which is not reported as a stream failure.
func (l *Listener) Close() {
	l.mu.Lock()
	l.closing = true
	l.mu.Unlock()
	l.body.Close()
}

func (l *Listener) signalReady() {
	l.readyOnce.Do(func() { close(l.ready) })
}

// Latest returns the newest buffered snapshot payload. ok is false when no
// snapshot has been pushed yet or the buffer was cleared on termination.
func (l *Listener) Latest() (json.RawMessage, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.buffer) == 0 {
		return nil, false
	}
	return l.buffer[0], true
}

// Version returns the count of snapshots pushed so far.
func (l *Listener) Version() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

// Err returns the terminal error, or nil while the listener is healthy or
// after a clean remote close.
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Done reports whether the background loop has terminated.
func (l *Listener) Done() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// WaitForVersion blocks until the snapshot version advances past after, the
// listener terminates, or the stream fails. It returns the version observed
// and the terminal error, if any.
func (l *Listener) WaitForVersion(after uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for l.version <= after && l.err == nil && !l.done {
		l.cond.Wait()
	}
	return l.version, l.err
}
