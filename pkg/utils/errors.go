package utils

import (
	"errors"
	"fmt"
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

// Is two AppErrors match when their codes match
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

// NewError create new application error
func NewError(code ResponseCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewErrorf create new application error with formatted message
func NewErrorf(code ResponseCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wrap error
func WrapError(code ResponseCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Predefined errors
var (
	// Parameter errors
	ErrInvalidParam = NewError(CodeInvalidParam, "invalid parameter")

	// Permission errors
	ErrUnauthorized = NewError(CodeUnauthorized, "unauthorized")
	ErrForbidden    = NewError(CodeForbidden, "permission denied")

	// Cart / catalog errors
	ErrInvalidCartReference = NewError(CodeInvalidParam, "some cart items are invalid or do not belong to you")
	ErrSKUNotFound          = NewError(CodeNotFound, "sku not found or deleted")

	// Checkout errors
	ErrStockNotEnough = NewError(CodeStockNotEnough, "insufficient stock")
	ErrStockConflict  = NewError(CodeStockConflict, "stock changed concurrently, please retry")
	ErrLockTimeout    = NewError(CodeLockTimeout, "system busy, please try again")

	// Order errors
	ErrOrderNotFound     = NewError(CodeNotFound, "order not found")
	ErrNoItemsForOrder   = NewError(CodeInvalidParam, "no valid cart items found for order")
	ErrInvalidTransition = NewError(CodeInvalidTransition, "invalid status transition")
	ErrCannotCancel      = NewError(CodeInvalidTransition, "order can no longer be cancelled")

	// Payment errors
	ErrPaymentNotFound       = NewError(CodePaymentNotFound, "payment not found")
	ErrNoOrdersForPayment    = NewError(CodeInvalidParam, "no orders found for payment")
	ErrInsufficientFunds     = NewError(CodeInsufficientFunds, "payment amount insufficient")
	ErrDuplicateTransaction  = NewError(CodeDuplicateTransaction, "transaction already processed")
	ErrMissingTransactionRef = NewError(CodeInvalidParam, "transaction code is required")
	ErrMalformedReference    = NewError(CodeInvalidParam, "invalid payment reference, expected DH{paymentId}")

	// System errors
	ErrInternalError = NewError(CodeInternalError, "internal server error")
	ErrDatabaseError = NewError(CodeDatabaseError, "database error")
	ErrRedisError    = NewError(CodeRedisError, "redis error")
	ErrQueueError    = NewError(CodeQueueError, "queue error")
)

// IsAppError check if it's an application error
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
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
