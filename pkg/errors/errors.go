// Package errors defines AppError, the structured error type threaded
// across every ProbySDK package boundary (orig §7's error taxonomy):
// configuration, protocol, transport, pairing, and journal failures each
// carry a stable code, the component/operation that raised them, and an
// optional wrapped cause.
package errors

import (
	"fmt"
	"runtime"
	"time"
)

// AppError is ProbySDK's standard error shape.
type AppError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	Cause      error                  `json:"cause,omitempty"`
	StackTrace string                 `json:"stack_trace,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Severity   Severity               `json:"severity"`
}

// Severity ranks how an AppError should be handled by a caller deciding
// whether to retry, surface to the host app, or treat as fatal.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Error codes, one family per orig §7 taxonomy entry.
const (
	// Configuration: loading/parsing/validating the YAML config file.
	CodeConfigInvalid         = "CONFIG_INVALID"
	CodeConfigNotFound        = "CONFIG_NOT_FOUND"
	CodeConfigValidationFailed = "CONFIG_VALIDATION_FAILED"

	// Protocol: wire message encode/decode (pkg/wire).
	CodeProtocolDecodeFailed    = "PROTOCOL_DECODE_FAILED"
	CodeProtocolUnknownType     = "PROTOCOL_UNKNOWN_MESSAGE_TYPE"
	CodeProtocolVersionMismatch = "PROTOCOL_VERSION_MISMATCH"

	// Network transport: WebSocket server, mDNS advertiser, network
	// interface monitoring.
	CodeTransportBindFailed    = "TRANSPORT_BIND_FAILED"
	CodeTransportRestartFailed = "TRANSPORT_RESTART_FAILED"
	CodeTransportUnavailable   = "TRANSPORT_UNAVAILABLE"

	// Pairing: PIN generation, validation, cooldown/lockout.
	CodePairingUnauthorized      = "PAIRING_UNAUTHORIZED"
	CodePairingCooldownActive    = "PAIRING_COOLDOWN_ACTIVE"
	CodePairingAttemptsExhausted = "PAIRING_ATTEMPTS_EXHAUSTED"

	// Persistence I/O: the on-disk rotating journal.
	CodeJournalWriteFailed          = "JOURNAL_WRITE_FAILED"
	CodeJournalRotationFailed       = "JOURNAL_ROTATION_FAILED"
	CodeJournalDirectoryUnavailable = "JOURNAL_DIRECTORY_UNAVAILABLE"

	// Fatal: conditions the Engine cannot recover from at runtime.
	CodeEngineStartupFailed = "ENGINE_STARTUP_FAILED"
	CodeEngineOverloaded    = "ENGINE_OVERLOADED"
	CodeCollectorCrashed    = "COLLECTOR_CRASHED"
)

// New creates an AppError at SeverityMedium, capturing the caller's
// file:line for StackTrace.
func New(code, component, operation, message string) *AppError {
	_, file, line, _ := runtime.Caller(1)

	return &AppError{
		Code:       code,
		Message:    message,
		Component:  component,
		Operation:  operation,
		StackTrace: fmt.Sprintf("%s:%d", file, line),
		Metadata:   make(map[string]interface{}),
		Timestamp:  time.Now(),
		Severity:   SeverityMedium,
	}
}

// NewCritical creates an AppError at SeverityCritical.
func NewCritical(code, component, operation, message string) *AppError {
	err := New(code, component, operation, message)
	err.Severity = SeverityCritical
	return err
}

// NewWithSeverity creates an AppError at an explicit severity.
func NewWithSeverity(severity Severity, code, component, operation, message string) *AppError {
	err := New(code, component, operation, message)
	err.Severity = severity
	return err
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Component, e.Operation, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, e.Message)
}

// Wrap attaches cause as the underlying error.
func (e *AppError) Wrap(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithMetadata attaches a key/value pair for structured logging, e.g.
// the journal segment file or viewer connection ID involved.
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithSeverity overrides the severity assigned at construction.
func (e *AppError) WithSeverity(severity Severity) *AppError {
	e.Severity = severity
	return e
}

// IsCritical reports whether this error is SeverityCritical.
func (e *AppError) IsCritical() bool {
	return e.Severity == SeverityCritical
}

// IsRecoverable reports whether a caller might reasonably retry rather
// than abandon the operation.
func (e *AppError) IsRecoverable() bool {
	switch e.Severity {
	case SeverityCritical, SeverityHigh:
		return false
	default:
		return true
	}
}

// ToMap flattens the error into a map suitable for a logrus.Fields call.
func (e *AppError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code":      e.Code,
		"error_message":   e.Message,
		"error_component": e.Component,
		"error_operation": e.Operation,
		"error_severity":  string(e.Severity),
		"error_timestamp": e.Timestamp,
	}

	if e.StackTrace != "" {
		result["error_stack_trace"] = e.StackTrace
	}

	if e.Cause != nil {
		result["error_cause"] = e.Cause.Error()
	}

	for k, v := range e.Metadata {
		result[fmt.Sprintf("error_meta_%s", k)] = v
	}

	return result
}

// Convenience constructors, one per orig §7 taxonomy family.

// ConfigError creates a configuration-layer error.
func ConfigError(operation, message string) *AppError {
	return New(CodeConfigInvalid, "config", operation, message)
}

// ProtocolError creates a wire-protocol encode/decode error.
func ProtocolError(operation, message string) *AppError {
	return New(CodeProtocolDecodeFailed, "protocol", operation, message)
}

// TransportError creates a network transport error (WebSocket server,
// mDNS advertiser, or network interface monitoring).
func TransportError(operation, message string) *AppError {
	return New(CodeTransportUnavailable, "transport", operation, message)
}

// PairingError creates a critical pairing/authentication error.
func PairingError(operation, message string) *AppError {
	return NewCritical(CodePairingUnauthorized, "pairing", operation, message)
}

// JournalError creates a persistence I/O error from the on-disk journal.
func JournalError(operation, message string) *AppError {
	return New(CodeJournalWriteFailed, "journal", operation, message)
}

// FatalError creates a critical, unrecoverable engine error.
func FatalError(operation, message string) *AppError {
	return NewCritical(CodeEngineStartupFailed, "engine", operation, message)
}

// IsAppError reports whether err is an *AppError.
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError converts err to an *AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}

// WrapError wraps a plain error into an AppError, leaving an existing
// AppError untouched rather than double-wrapping it.
func WrapError(err error, component, operation, message string) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	return New("WRAPPED_ERROR", component, operation, message).Wrap(err)
}
