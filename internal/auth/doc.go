// Package auth owns credentials and token lifecycle for the Homegraph
// client.
//
// It exchanges an authorization PIN (OAuth2 authorization_code grant) or,
// as a legacy fallback, a username/password pair for an access token, signs
// outgoing requests, and persists the token to an optional on-disk cache
// file with owner-only permissions.
//
// # Key Types
//
//   - Authenticator: performs login, signing and persistence
//   - Token: access token plus TTL bookkeeping
//   - LoginResult: fixed observer payload captured from a login response
//   - AuthorizationError: credential or token rejection by the remote
//
// # Thread Safety
//
// The Authenticator is safe for concurrent use: the transport layer and the
// event stream opener read the token under the same mutex that login
// refreshes take.
package auth
