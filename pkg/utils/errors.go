package utils

import (
	"fmt"
)

// ResponseCode application-level response code
type ResponseCode int

const (
	CodeSuccess ResponseCode = 0

	// Parameter errors
	CodeInvalidParam ResponseCode = 1001

	// Stock related errors
	CodeSnapshotNotFound ResponseCode = 2001
	CodeUnitNotFound     ResponseCode = 2002
	CodeInvalidMovement  ResponseCode = 2003

	// Subscription related errors
	CodeSubscriptionClosed ResponseCode = 3001
	CodeFeedUnavailable    ResponseCode = 3002

	// System errors
	CodeRateLimit     ResponseCode = 4029
	CodeInternalError ResponseCode = 5000
	CodeServiceError  ResponseCode = 5001
	CodeDatabaseError ResponseCode = 5002
	CodeRedisError    ResponseCode = 5003
)

// AppError application error structure
type AppError struct {
	Code    ResponseCode `json:"code"`
	Message string       `json:"message"`
	Err     error        `json:"-"`
}

// Error implement error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("code: %d, message: %s, error: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
}

// Unwrap implement errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError create new application error
func NewError(code ResponseCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// WrapError wrap error
func WrapError(err error, code ResponseCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Predefined errors
var (
	ErrInvalidParam       = NewError(CodeInvalidParam, "invalid parameter")
	ErrSnapshotNotFound   = NewError(CodeSnapshotNotFound, "stock snapshot not found")
	ErrUnitNotFound       = NewError(CodeUnitNotFound, "stock unit not found")
	ErrInvalidMovement    = NewError(CodeInvalidMovement, "invalid stock movement")
	ErrSubscriptionClosed = NewError(CodeSubscriptionClosed, "subscription closed")
	ErrFeedUnavailable    = NewError(CodeFeedUnavailable, "change feed unavailable")
	ErrRateLimit          = NewError(CodeRateLimit, "rate limit exceeded")
	ErrInternalError      = NewError(CodeInternalError, "internal server error")
	ErrDatabaseError      = NewError(CodeDatabaseError, "database error")
	ErrRedisError         = NewError(CodeRedisError, "redis error")
)

// IsAppError check if it's an application error
func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

// GetErrorCode get error code
func GetErrorCode(err error) ResponseCode {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Code
	}
	return CodeInternalError
}

// GetErrorMessage get error message
func GetErrorMessage(err error) string {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
