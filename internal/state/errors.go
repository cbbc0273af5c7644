package state

import "errors"

// Domain errors for the state package, checked with errors.Is().
var (
	// ErrNotFound is returned when an entity id does not exist in the
	// current snapshot.
	ErrNotFound = errors.New("state: entity not found")

	// ErrFieldUnavailable is returned when a field is absent from the
	// snapshot or has an unexpected type.
	ErrFieldUnavailable = errors.New("state: field unavailable")

	// ErrNoStream is returned when a stream-only operation is invoked on a
	// polling cache.
	ErrNoStream = errors.New("state: cache has no event stream")
)
