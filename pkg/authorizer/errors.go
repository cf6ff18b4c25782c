package authorizer

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("invalid authorization configuration")
	// ErrUserCancelled reports that the user aborted the attempt.
	ErrUserCancelled = errors.New("authorization cancelled by user")
	// ErrServerDeclined is matched by every *DeclinedError.
	ErrServerDeclined = errors.New("authorization declined by server")
	// ErrMalformedRedirect reports a redirect carrying neither a token nor an error.
	ErrMalformedRedirect = errors.New("malformed authorization redirect")
	// ErrTokenNotPersisted reports that a token was issued but could not be stored.
	ErrTokenNotPersisted = errors.New("access token could not be persisted")

	// ErrCompletionRegistered is returned when a completion handler is already set.
	ErrCompletionRegistered = errors.New("completion handler already registered")
	// ErrFinalized is returned when registering a handler after the attempt finished.
	ErrFinalized = errors.New("authorization attempt already finalized")
)

// ConfigurationError describes why a configuration was rejected.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrConfiguration, e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Error codes defined for the implicit grant error response (RFC 6749 section 4.2.2.1).
const (
	CodeInvalidRequest          = "invalid_request"
	CodeUnauthorizedClient      = "unauthorized_client"
	CodeAccessDenied            = "access_denied"
	CodeUnsupportedResponseType = "unsupported_response_type"
	CodeInvalidScope            = "invalid_scope"
	CodeServerError             = "server_error"
	CodeTemporarilyUnavailable  = "temporarily_unavailable"
	// CodeUnknown is reported for reasons outside the registered set.
	CodeUnknown = "unknown"
)

var knownCodes = map[string]struct{}{
	CodeInvalidRequest:          {},
	CodeUnauthorizedClient:      {},
	CodeAccessDenied:            {},
	CodeUnsupportedResponseType: {},
	CodeInvalidScope:            {},
	CodeServerError:             {},
	CodeTemporarilyUnavailable:  {},
}

// DeclinedError carries the raw error reason returned by the authorization server.
type DeclinedError struct {
	Reason      string
	Description string
}

func (e *DeclinedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%v: %s (%s)", ErrServerDeclined, e.Reason, e.Description)
	}
	return fmt.Sprintf("%v: %s", ErrServerDeclined, e.Reason)
}

// Is reports whether target is ErrServerDeclined.
func (e *DeclinedError) Is(target error) bool {
	return target == ErrServerDeclined
}

// Code maps Reason to a registered error code, or CodeUnknown.
func (e *DeclinedError) Code() string {
	if _, ok := knownCodes[e.Reason]; ok {
		return e.Reason
	}
	return CodeUnknown
}
