package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeMalformedRequest indicates a bad payload shape: both or neither
	// token present, an unknown verb, or undecodable input.
	ErrCodeMalformedRequest ErrorCode = "malformed_request"
	// ErrCodeUnauthenticated indicates any token validation failure.
	ErrCodeUnauthenticated ErrorCode = "unauthenticated"
	// ErrCodeACLRejected indicates the caller IP failed the network ACL.
	ErrCodeACLRejected ErrorCode = "acl_rejected"
	// ErrCodePermissionDenied indicates a normal authorization denial.
	ErrCodePermissionDenied ErrorCode = "permission_denied"
	// ErrCodeRateLimited indicates the caller exceeded the request limit.
	ErrCodeRateLimited ErrorCode = "rate_limited"
	// ErrCodeUpstreamUnavailable indicates the directory fetch failed after
	// the single retry and no live cache entry could be served.
	ErrCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	// ErrCodeNotFound indicates a referenced resource does not exist.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Reason is a short machine-readable detail carried to API responses
	// (optional, e.g. "permission_missing" or "invalid_signature")
	Reason string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithReason returns the error with a machine-readable reason attached.
func (e *AppError) WithReason(reason string) *AppError {
	e.Reason = reason
	return e
}

// MalformedRequest creates a new MalformedRequest error.
func MalformedRequest(message string) *AppError {
	return &AppError{
		Code:    ErrCodeMalformedRequest,
		Message: message,
	}
}

// MalformedRequestf creates a new MalformedRequest error with formatted message.
func MalformedRequestf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeMalformedRequest,
		Message: fmt.Sprintf(format, args...),
	}
}

// Unauthenticated creates a new Unauthenticated error.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthenticated,
		Message: message,
	}
}

// ACLRejected creates a new ACLRejected error.
func ACLRejected(message string) *AppError {
	return &AppError{
		Code:    ErrCodeACLRejected,
		Message: message,
	}
}

// PermissionDenied creates a new PermissionDenied error.
func PermissionDenied(message string) *AppError {
	return &AppError{
		Code:    ErrCodePermissionDenied,
		Message: message,
	}
}

// RateLimited creates a new RateLimited error.
func RateLimited(message string) *AppError {
	return &AppError{
		Code:    ErrCodeRateLimited,
		Message: message,
	}
}

// UpstreamUnavailable creates a new UpstreamUnavailable error.
func UpstreamUnavailable(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUpstreamUnavailable,
		Message: message,
	}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: message,
	}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
	}
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsMalformedRequest checks if an error is a MalformedRequest error.
func IsMalformedRequest(err error) bool {
	return isCode(err, ErrCodeMalformedRequest)
}

// IsUnauthenticated checks if an error is an Unauthenticated error.
func IsUnauthenticated(err error) bool {
	return isCode(err, ErrCodeUnauthenticated)
}

// IsACLRejected checks if an error is an ACLRejected error.
func IsACLRejected(err error) bool {
	return isCode(err, ErrCodeACLRejected)
}

// IsPermissionDenied checks if an error is a PermissionDenied error.
func IsPermissionDenied(err error) bool {
	return isCode(err, ErrCodePermissionDenied)
}

// IsRateLimited checks if an error is a RateLimited error.
func IsRateLimited(err error) bool {
	return isCode(err, ErrCodeRateLimited)
}

// IsUpstreamUnavailable checks if an error is an UpstreamUnavailable error.
func IsUpstreamUnavailable(err error) bool {
	return isCode(err, ErrCodeUpstreamUnavailable)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetReason returns the Reason from an error, or empty string if not an AppError or no reason set.
func GetReason(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ""
}
