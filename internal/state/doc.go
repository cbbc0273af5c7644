// Package state holds the most recently known snapshot of the remote
// device/structure graph and arbitrates concurrent access to it.
//
// A Snapshot is an immutable view over one decoded state tree; readers
// address it through Records, whose typed getters degrade absent or
// mistyped fields to an explicit ErrFieldUnavailable instead of a zero
// value. Snapshots are replaced wholesale, never mutated in place.
//
// The Cache refreshes the snapshot either by TTL-bounded polling or from a
// background event-stream listener, with at most one refresh in flight per
// cache (concurrent stale readers share the single fetch). Invalidate is
// called by the transport after every successful mutation so the next read
// refetches.
package state
