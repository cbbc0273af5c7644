// Package transport issues signed HTTP requests against the Homegraph
// cloud API.
//
// It owns the wire-level failure handling the REST surface requires:
//
//   - a 307 response is followed exactly once to the tenant-specific
//     endpoint, replaying the same method and body
//   - a 429 response is retried with a wait computed from the Retry-After
//     header (seconds, then HTTP date, then a configured default), bounded
//     by a configured retry ceiling
//   - a 401 response surfaces as *auth.AuthorizationError; when a refresher
//     is configured the request is retried once after a token refresh
//   - any other non-success response surfaces as *APIError carrying the
//     remote diagnostic when present
//
// Mutations go through Mutate, which invalidates the state cache after the
// success response so the next read refetches. Transport does not implement
// its own connection handling; it delegates to net/http.
package transport
