package transport

import (
	"encoding/json"
	"fmt"
)

// APIError reports a non-success, non-authorization response after redirect
// and rate-limit handling is exhausted.
type APIError struct {
	// StatusCode is the HTTP status of the final response, or zero when the
	// failure arrived out of band (e.g. an error stream event).
	StatusCode int

	// Message is the remote-provided error message when the body carried
	// one, else a generic message.
	Message string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: API error (status %d): %s", e.StatusCode, e.Message)
	}
	return "transport: API error: " + e.Message
}

// apiErrorMessage extracts the "error" field from a response body, falling
// back to a generic message for empty or undecodable bodies.
func apiErrorMessage(body []byte) string {
	if len(body) > 0 {
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
			return payload.Error
		}
	}
	return "API error occurred"
}
