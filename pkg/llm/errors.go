// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package llm provides plumbing shared by every provider implementation:
// the error taxonomy surfaced at the provider boundary and token estimation
// for providers that do not report usage.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	// ErrTransport covers network-level failures (DNS, connect, reset).
	ErrTransport ErrorKind = "transport"

	// ErrAuth covers credential rejection (401/403).
	ErrAuth ErrorKind = "auth"

	// ErrRateLimited covers vendor throttling (429).
	ErrRateLimited ErrorKind = "rate_limited"

	// ErrTimeout covers deadline expiry, client or server side.
	ErrTimeout ErrorKind = "timeout"

	// ErrInvalidResponse covers malformed or unexpected vendor payloads.
	ErrInvalidResponse ErrorKind = "invalid_response"
)

// ProviderError is the error type returned by every provider implementation.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Provider, e.Message, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Kind)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth retrying. Transport and
// timeout failures are transient; rate limiting needs backoff rather than an
// immediate retry, and auth and invalid-response failures are permanent.
func (e *ProviderError) Retryable() bool {
	return e.Kind == ErrTransport || e.Kind == ErrTimeout
}

// NewError builds a ProviderError with the given kind.
func NewError(provider string, kind ErrorKind, message string, err error) *ProviderError {
	return &ProviderError{Kind: kind, Provider: provider, Message: message, Err: err}
}

// WrapTransport classifies a raw HTTP client error as transport or timeout.
// Context deadline expiry and net timeouts map to ErrTimeout, everything
// else to ErrTransport.
func WrapTransport(provider string, err error) *ProviderError {
	kind := ErrTransport
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = ErrTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = ErrTimeout
	}
	return &ProviderError{Kind: kind, Provider: provider, Message: "request failed", Err: err}
}

// ErrorFromStatus classifies a non-2xx vendor status code.
func ErrorFromStatus(provider string, status int, body string) *ProviderError {
	kind := ErrInvalidResponse
	switch {
	case status == 401 || status == 403:
		kind = ErrAuth
	case status == 429:
		kind = ErrRateLimited
	case status == 408 || status == 504:
		kind = ErrTimeout
	case status >= 500:
		kind = ErrTransport
	}
	return &ProviderError{
		Kind:     kind,
		Provider: provider,
		Message:  fmt.Sprintf("API error (status %d): %s", status, truncate(body, 200)),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
