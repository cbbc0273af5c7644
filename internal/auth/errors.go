package auth

import "fmt"

// AuthorizationError reports that the remote rejected the supplied
// credentials or token. It carries the remote diagnostic when the response
// body contained one.
type AuthorizationError struct {
	// StatusCode is the HTTP status of the rejecting response, or zero when
	// the rejection arrived out of band (e.g. an auth_revoked stream event).
	StatusCode int

	// Message is the remote-provided diagnostic, or a generic fallback.
	Message string
}

func (e *AuthorizationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("auth: authorization failed (status %d): %s", e.StatusCode, e.Message)
	}
	return "auth: authorization failed: " + e.Message
}
