package errors

import (
	"fmt"
)

// ErrorCode identifies a class of expected failure in user context and
// preference operations. Codes are stable strings so callers can branch on
// them and surface them unchanged.
type ErrorCode string

const (
	// ErrCodeUserNotFound indicates the target user does not exist or is inactive.
	ErrCodeUserNotFound ErrorCode = "USER_NOT_FOUND"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeAuthFailed indicates the authentication collaborator rejected the operation.
	ErrCodeAuthFailed ErrorCode = "AUTH_FAILED"
	// ErrCodeSessionExpired indicates the session expired and could not be renewed.
	ErrCodeSessionExpired ErrorCode = "SESSION_EXPIRED"
	// ErrCodeStoreUnavailable indicates the backing store failed.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrCodeContextCanceled indicates the operation was canceled by the caller.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
)

// OpError is a structured error for user context operations.
type OpError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *OpError) Unwrap() error {
	return e.Cause
}

// UserNotFound creates a user not found error.
func UserNotFound(userID int32) *OpError {
	return &OpError{
		Code:    ErrCodeUserNotFound,
		Message: fmt.Sprintf("user not found: %d", userID),
	}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *OpError {
	return &OpError{Code: ErrCodeInvalidArgument, Message: msg}
}

// AuthFailed creates an authentication failure error.
func AuthFailed(msg string) *OpError {
	return &OpError{Code: ErrCodeAuthFailed, Message: msg}
}

// StoreUnavailable creates a store unavailable error wrapping the cause.
func StoreUnavailable(cause error) *OpError {
	return &OpError{Code: ErrCodeStoreUnavailable, Message: "store operation failed", Cause: cause}
}

// ContextCanceled creates a context canceled error.
func ContextCanceled(cause error) *OpError {
	return &OpError{Code: ErrCodeContextCanceled, Message: "operation canceled", Cause: cause}
}

// IsCode checks if an error carries a specific code.
func IsCode(err error, code ErrorCode) bool {
	if opErr, ok := err.(*OpError); ok {
		return opErr.Code == code
	}
	return false
}

// CodeOf extracts the error code from any error.
// Returns the provided default code if the error is not an OpError.
func CodeOf(err error, defaultCode ErrorCode) ErrorCode {
	if opErr, ok := err.(*OpError); ok {
		return opErr.Code
	}
	return defaultCode
}
