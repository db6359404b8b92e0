package domain

import (
	"errors"
	"fmt"
	"strings"
)

// TransportError represents a network-level failure (connection, DNS, timeout)
// while talking to the marketplace
type TransportError struct {
	Op    string
	Cause error
}

// NewTransportError creates a TransportError wrapping the underlying cause
func NewTransportError(op string, cause error) *TransportError {
	return &TransportError{Op: op, Cause: cause}
}

// Error returns the string representation of the TransportError
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// HTTPError represents a non-success HTTP response from the marketplace,
// preserving the response body for diagnostics
type HTTPError struct {
	Status int
	Body   string
}

// NewHTTPError creates an HTTPError from a status code and response body
func NewHTTPError(status int, body string) *HTTPError {
	return &HTTPError{Status: status, Body: body}
}

// Error returns the string representation of the HTTPError
func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("marketplace returned status %d: %s", e.Status, strings.TrimSpace(body))
}

// ParseError represents a malformed package identifier or an unexpected
// response shape
type ParseError struct {
	Input  string
	Reason string
}

// NewParseError creates a ParseError for the given input
func NewParseError(input, reason string) *ParseError {
	return &ParseError{Input: input, Reason: reason}
}

// Error returns the string representation of the ParseError
func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q: %s", e.Input, e.Reason)
}

// IsHTTPStatus reports whether err is an HTTPError with the given status code
func IsHTTPStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == status
}
