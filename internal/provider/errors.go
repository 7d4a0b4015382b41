package provider

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind labels why a notification failed. It is informational only.
type FailureKind string

const (
	FailureAPI       FailureKind = "api_error"
	FailureTransport FailureKind = "transport_error"
	FailureInvalid   FailureKind = "invalid_response"
)

// ProviderError describes a failed indexing API call.
type ProviderError struct {
	Kind       FailureKind
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "provider error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Kind returns the failure kind of err, defaulting to transport for foreign errors.
func Kind(err error) FailureKind {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) && providerErr.Kind != "" {
		return providerErr.Kind
	}
	return FailureTransport
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.StatusCode
	}
	return 0
}
