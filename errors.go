package homegraph

import (
	"github.com/rivenhall/homegraph/internal/auth"
	"github.com/rivenhall/homegraph/internal/entity"
	"github.com/rivenhall/homegraph/internal/state"
	"github.com/rivenhall/homegraph/internal/transport"
)

// AuthorizationError reports a rejected or revoked credential. Receiving
// one means the authorization flow must be repeated.
type AuthorizationError = auth.AuthorizationError

// APIError reports any non-authorization failure response from the
// service, including exhausted rate-limit retries.
type APIError = transport.APIError

// Sentinel errors surfaced by snapshot reads and entity views.
var (
	// ErrNotFound reports an entity id absent from the snapshot.
	ErrNotFound = state.ErrNotFound

	// ErrFieldUnavailable reports a field the remote did not include.
	ErrFieldUnavailable = state.ErrFieldUnavailable

	// ErrNoStream reports a change-wait without an open event stream.
	ErrNoStream = state.ErrNoStream

	// ErrDeprecated reports a field the protocol no longer carries.
	ErrDeprecated = entity.ErrDeprecated

	// ErrRangeMode reports a scalar target read in heat-cool mode.
	ErrRangeMode = entity.ErrRangeMode

	// ErrNotRangeMode reports a range read outside heat-cool mode.
	ErrNotRangeMode = entity.ErrNotRangeMode

	// ErrBadValue reports a value outside the accepted vocabulary.
	ErrBadValue = entity.ErrBadValue
)
