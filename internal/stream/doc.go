// Package stream maintains the long-lived server-sent-event connection
// that pushes state snapshots to the client.
//
// A Listener consumes one open event-stream response on a background
// goroutine. It keeps only the newest and previous pushed snapshots in a
// bounded buffer, advances a version counter on every push, and wakes
// readers blocked on the version through a condition variable. A terminated
// listener (remote close, parse failure, auth_revoked or error event) is
// never restarted; the state cache replaces it on the next read.
//
// Event taxonomy: "open" and "keep-alive" are liveness only; "put" carries
// a JSON snapshot; "auth_revoked" and "error" terminate the listener with
// the matching failure, which propagates to any blocked reader.
package stream
