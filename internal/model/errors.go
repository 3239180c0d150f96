package model

import "fmt"

// FetchReason classifies adapter fetch failures.
type FetchReason string

const (
	// FetchNetwork covers connection failures and timeouts.
	FetchNetwork FetchReason = "network"
	// FetchHTTPStatus covers non-2xx upstream responses.
	FetchHTTPStatus FetchReason = "http_status"
	// FetchInvalidResponse covers bodies that are not valid JSON or lack the
	// expected structure.
	FetchInvalidResponse FetchReason = "invalid_response"
)

// FetchError is returned by adapters when an upstream call fails. Prior layer
// state is always retained when one of these surfaces.
type FetchError struct {
	SourceID   string
	Reason     FetchReason
	StatusCode int // set only for FetchHTTPStatus
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s: %s", e.SourceID, e.Reason)
	if e.Reason == FetchHTTPStatus {
		msg = fmt.Sprintf("%s %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// NotFoundError reports an operation against an unregistered source id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("source %q is not registered", e.ID)
}

// AuthError reports a failed token exchange. It is informational: callers
// degrade to anonymous mode rather than propagating it.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return "authentication failed: " + e.Err.Error()
	}
	return "authentication failed"
}

func (e *AuthError) Unwrap() error { return e.Err }

// ValidationError reports a malformed feature. Features failing validation
// are dropped from their collection, never fatal to a fetch.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid feature: " + e.Reason
}
