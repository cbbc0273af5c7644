package stream

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/rivenhall/homegraph/internal/auth"
	"github.com/rivenhall/homegraph/internal/transport"
)

// pipeListener starts a listener fed by a pipe the test writes wire data to.
func pipeListener(t *testing.T) (*Listener, *io.PipeWriter) {
	t.Helper()

	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	done := make(chan *Listener, 1)
	go func() {
		done <- Listen(&http.Response{Body: pr}, nil)
	}()

	// Listen blocks on readiness; satisfy it with the open event.
	fmt.Fprint(pw, "event: open\ndata: null\n\n")

	return <-done, pw
}

func putEvent(snapshot string) string {
	return fmt.Sprintf("event: put\ndata: {\"path\":\"/\",\"data\":%s}\n\n", snapshot)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestListenerBuffersNewestTwoSnapshots(t *testing.T) {
	l, pw := pipeListener(t)

	if _, ok := l.Latest(); ok {
		t.Error("Latest() reported data before any put event")
	}

	fmt.Fprint(pw, putEvent(`{"v":1}`))
	fmt.Fprint(pw, putEvent(`{"v":2}`))
	fmt.Fprint(pw, putEvent(`{"v":3}`))

	waitFor(t, func() bool { return l.Version() == 3 })

	latest, ok := l.Latest()
	if !ok {
		t.Fatal("Latest() has no data after put events")
	}
	if string(latest) != `{"v":3}` {
		t.Errorf("Latest() = %s, want the newest snapshot", latest)
	}

	l.mu.Lock()
	depth := len(l.buffer)
	previous := string(l.buffer[1])
	l.mu.Unlock()

	if depth != 2 {
		t.Errorf("buffer depth = %d, want bounded at 2", depth)
	}
	if previous != `{"v":2}` {
		t.Errorf("previous snapshot = %s, want {\"v\":2}", previous)
	}
}

func TestListenerWaitForVersion(t *testing.T) {
	l, pw := pipeListener(t)

	got := make(chan uint64, 1)
	go func() {
		v, _ := l.WaitForVersion(0)
		got <- v
	}()

	fmt.Fprint(pw, putEvent(`{"v":1}`))

	select {
	case v := <-got:
		if v != 1 {
			t.Errorf("WaitForVersion(0) = %d, want 1", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForVersion(0) did not wake on put event")
	}
}

func TestAuthRevokedPropagatesToBlockedWaiters(t *testing.T) {
	l, pw := pipeListener(t)

	errs := make(chan error, 1)
	go func() {
		_, err := l.WaitForVersion(0)
		errs <- err
	}()

	fmt.Fprint(pw, "event: auth_revoked\ndata: null\n\n")

	select {
	case err := <-errs:
		var authErr *auth.AuthorizationError
		if !errors.As(err, &authErr) {
			t.Errorf("waiter error = %v, want *auth.AuthorizationError", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked waiter not woken by auth_revoked")
	}

	waitFor(t, l.Done)
	if l.Err() == nil {
		t.Error("Err() = nil after auth_revoked")
	}
}

func TestErrorEventCarriesDiagnostic(t *testing.T) {
	l, pw := pipeListener(t)

	fmt.Fprint(pw, "event: error\ndata: something went sideways\n\n")

	waitFor(t, l.Done)

	var apiErr *transport.APIError
	if !errors.As(l.Err(), &apiErr) {
		t.Fatalf("Err() = %v, want *transport.APIError", l.Err())
	}
	if apiErr.Message != "something went sideways" {
		t.Errorf("Message = %q, want event payload", apiErr.Message)
	}
}

func TestRemoteCloseClearsBufferWithoutError(t *testing.T) {
	l, pw := pipeListener(t)

	fmt.Fprint(pw, putEvent(`{"v":1}`))
	waitFor(t, func() bool { return l.Version() == 1 })

	pw.Close()
	waitFor(t, l.Done)

	if _, ok := l.Latest(); ok {
		t.Error("buffer not cleared on stream termination")
	}
	if l.Err() != nil {
		t.Errorf("Err() = %v, want nil for clean remote close", l.Err())
	}
}

func TestMalformedPutTerminatesListener(t *testing.T) {
	l, pw := pipeListener(t)

	fmt.Fprint(pw, "event: put\ndata: {not json\n\n")

	waitFor(t, l.Done)
	if l.Err() == nil {
		t.Error("Err() = nil after undecodable put payload")
	}
}
