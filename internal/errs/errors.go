// Package errs provides the unified error type used across blindsight.
//
// Every subsystem (oracle transports, database drivers, object stores, the
// scanner) wraps its native errors into *errs.Error before returning them.
// Callers use the Is* predicates to decide what to do without importing
// transport- or driver-specific packages.
//
// Usage:
//
//	// In a transport, wrap native errors:
//	return false, errs.Wrap(errs.ErrKindTransport, "probe request failed", err)
//
//	// In the CLI, check the error kind:
//	if errs.IsDialectNotDetected(err) {
//	    fmt.Println("target did not match any known engine")
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
type ErrKind int

const (
	ErrKindUnknown            ErrKind = iota
	ErrKindNotFound                   // no rows, no object, no bucket
	ErrKindConnectionFailed           // cannot reach the backend
	ErrKindTimeout                    // context deadline / cancellation
	ErrKindQueryFailed                // SQL or storage operation error
	ErrKindInvalidInput               // bad arguments from the caller
	ErrKindPermissionDenied           // access denied / auth failure
	ErrKindTransport                  // a probe could not be delivered
	ErrKindDialectNotDetected         // no fingerprint matched the target
	ErrKindNoTables                   // table enumeration produced nothing
	ErrKindOracleUnstable             // oracle cannot separate true from false
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindTransport:
		return "transport"
	case ErrKindDialectNotDetected:
		return "dialect_not_detected"
	case ErrKindNoTables:
		return "no_tables"
	case ErrKindOracleUnstable:
		return "oracle_unstable"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all blindsight subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a formatted message.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a backend operation failure.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsTransport reports whether err is a probe delivery failure that the
// active failure policy chose to surface.
func IsTransport(err error) bool {
	return KindOf(err) == ErrKindTransport
}

// IsDialectNotDetected reports whether no dialect fingerprint matched.
func IsDialectNotDetected(err error) bool {
	return KindOf(err) == ErrKindDialectNotDetected
}

// IsNoTables reports whether table enumeration came back empty.
func IsNoTables(err error) bool {
	return KindOf(err) == ErrKindNoTables
}

// IsOracleUnstable reports whether the preflight check failed.
func IsOracleUnstable(err error) bool {
	return KindOf(err) == ErrKindOracleUnstable
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
