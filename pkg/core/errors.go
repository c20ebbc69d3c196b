package core

import (
	"errors"
	"fmt"
)

// Error is the canonical error type crossing component boundaries. Device- and
// transport-level failures are converted into one of these kinds where they
// occur; callers never see implementation-specific error values.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`

	// Underlying preserves the original error for errors.Is/As chains.
	Underlying error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	// ErrCaptureDenied means the microphone permission was refused or the
	// input device is unavailable. Fatal to the session attempt.
	ErrCaptureDenied ErrorType = "capture_denied_error"

	// ErrMalformedWireData means an inbound payload failed decode invariants.
	// The offending frame is dropped; the session survives.
	ErrMalformedWireData ErrorType = "malformed_wire_data_error"

	// ErrTransport means the remote streaming connection failed. Fatal.
	ErrTransport ErrorType = "transport_error"

	// ErrRemoteClosed means the remote endpoint closed the connection.
	// Terminal but not a failure.
	ErrRemoteClosed ErrorType = "remote_closed"

	// ErrSessionAlreadyActive means a second concurrent session was requested
	// on one controller instance. Rejected synchronously.
	ErrSessionAlreadyActive ErrorType = "session_already_active_error"

	// ErrInvalidConfig means a configuration value failed validation.
	ErrInvalidConfig ErrorType = "invalid_config_error"
)

// NewCaptureDeniedError wraps a device-level failure as capture denial.
func NewCaptureDeniedError(message string, underlying error) *Error {
	return &Error{
		Type:       ErrCaptureDenied,
		Message:    message,
		Underlying: underlying,
	}
}

// NewMalformedWireDataError creates a malformed wire data error.
func NewMalformedWireDataError(message string) *Error {
	return &Error{
		Type:    ErrMalformedWireData,
		Message: message,
	}
}

// NewTransportError wraps a connection-level failure.
func NewTransportError(message string, underlying error) *Error {
	return &Error{
		Type:       ErrTransport,
		Message:    message,
		Underlying: underlying,
	}
}

// NewRemoteClosedError creates a remote-close marker error.
func NewRemoteClosedError(message string) *Error {
	return &Error{
		Type:    ErrRemoteClosed,
		Message: message,
	}
}

// NewSessionAlreadyActiveError creates a duplicate-session error.
func NewSessionAlreadyActiveError(message string) *Error {
	return &Error{
		Type:    ErrSessionAlreadyActive,
		Message: message,
	}
}

// NewInvalidConfigError creates a configuration validation error.
func NewInvalidConfigError(message string) *Error {
	return &Error{
		Type:    ErrInvalidConfig,
		Message: message,
	}
}

// IsFatal reports whether the error ends the session it occurred in.
func (e *Error) IsFatal() bool {
	switch e.Type {
	case ErrMalformedWireData:
		return false
	default:
		return true
	}
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// TypeOf returns the canonical kind of err, or "" when err is not a *Error.
func TypeOf(err error) ErrorType {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ""
}
