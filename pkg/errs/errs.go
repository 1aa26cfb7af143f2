// Package errs defines the error taxonomy shared by the clients, services
// and transports. Each kind is a concrete struct so callers can classify
// failures with errors.As and map them to a stable external status.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError reports a user-supplied identifier or query that failed a
// sanitization rule. Always a client fault, never retried.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidation builds a ValidationError for the named rule.
func NewValidation(rule, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgumentError reports a programmatic misuse of an internal API,
// like an empty token context.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return e.Message
}

// AuthenticationError reports a missing credential or a backend 401/403.
type AuthenticationError struct {
	Context string
	Message string
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

// NewAuthentication builds an AuthenticationError with a remediation hint.
func NewAuthentication(context string) *AuthenticationError {
	return &AuthenticationError{
		Context: context,
		Message: fmt.Sprintf("no %s authentication token available, set it via the set_auth_token endpoint", context),
	}
}

// BackendError reports a non-2xx, non-auth response from a log backend.
// Body is truncated at construction; never log it without redaction.
type BackendError struct {
	Backend string
	Status  int
	Body    string
	Message string
}

func (e *BackendError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Backend, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Backend, e.Message)
}

// StatusCode returns the HTTP status carried by err when it is a
// BackendError, and 0 otherwise. The retry layer classifies on this.
func StatusCode(err error) int {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Status
	}
	return 0
}

// RateLimitError reports an exhausted rate-limit bucket.
type RateLimitError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter.Round(time.Millisecond))
}

// TimeoutError reports that the overall operation deadline elapsed,
// distinct from a single attempt's network timeout.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation timed out after %s", e.Timeout)
}

// ConfigurationError reports a missing or malformed configuration value.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("configuration %q: %s", e.Key, e.Message)
	}
	return e.Message
}

// SessionNotFoundError reports that no session ID could be extracted for an
// order ID.
type SessionNotFoundError struct {
	OrderID string
	Message string
	Hint    string
}

func (e *SessionNotFoundError) Error() string {
	return e.Message
}
