package llm

import (
	"errors"
	"fmt"
)

// ErrMissingCredential is returned before any network call when a backend
// has no API key or project configured.
var ErrMissingCredential = errors.New("missing model credential")

// HTTPError is a non-2xx response from a model or embedding endpoint.
type HTTPError struct {
	Backend    string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s api status %d: %s", e.Backend, e.StatusCode, truncate(e.Body, 200))
}

// Retryable reports whether the failure is transient.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// ParseError means the model returned non-JSON or schema-violating output.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse model output: %s (raw: %s)", e.Reason, truncate(e.Raw, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
