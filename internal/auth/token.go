package auth

import "time"

// Token holds an access token and its TTL bookkeeping.
type Token struct {
	AccessToken string `json:"access_token"`

	// ExpiresIn is the lifetime in seconds reported by the token endpoint.
	// Zero means the endpoint reported no expiry.
	ExpiresIn int64 `json:"expires_in,omitempty"`

	// ObtainedAt is when the token was issued or loaded.
	ObtainedAt time.Time `json:"obtained_at,omitempty"`
}

// Expired reports whether the token's reported lifetime has elapsed.
// Tokens without a reported expiry never expire time-wise; the transport
// still refreshes reactively when the remote answers 401.
func (t Token) Expired(now time.Time) bool {
	if t.AccessToken == "" {
		return true
	}
	if t.ExpiresIn <= 0 || t.ObtainedAt.IsZero() {
		return false
	}
	return now.After(t.ObtainedAt.Add(time.Duration(t.ExpiresIn) * time.Second))
}

// LoginResult is the fixed payload delivered to the login observer after
// every successful credential exchange or cache load. Auxiliary fields are
// only populated when the remote supplied them.
type LoginResult struct {
	Token

	// UserID and Email identify the authenticated account (legacy login).
	UserID string `json:"userid,omitempty"`
	Email  string `json:"email,omitempty"`

	// TransportURL is the tenant-specific base URL for subsequent calls
	// (legacy login).
	TransportURL string `json:"transport_url,omitempty"`

	// Scheme is the authorization scheme the token must be sent with:
	// "Bearer" for OAuth2 tokens, "Basic" for legacy tokens.
	Scheme string `json:"scheme,omitempty"`
}

// Observer receives the LoginResult after each successful login or cache
// load. It is invoked synchronously; implementations must not block.
type Observer func(LoginResult)
