package apperror

import (
	"errors"
	"net/http"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Common errors
var (
	ErrNotFound           = &AppError{Code: http.StatusNotFound, Message: "Resource not found"}
	ErrUnauthorized       = &AppError{Code: http.StatusUnauthorized, Message: "Unauthorized"}
	ErrForbidden          = &AppError{Code: http.StatusForbidden, Message: "Forbidden"}
	ErrBadRequest         = &AppError{Code: http.StatusBadRequest, Message: "Bad request"}
	ErrInternalServer     = &AppError{Code: http.StatusInternalServerError, Message: "Internal server error"}
	ErrConflict           = &AppError{Code: http.StatusConflict, Message: "Resource already exists"}
	ErrUnprocessable      = &AppError{Code: http.StatusUnprocessableEntity, Message: "Unprocessable entity"}
	ErrInvalidCredentials = &AppError{Code: http.StatusUnauthorized, Message: "Invalid email or password"}
	ErrTokenExpired       = &AppError{Code: http.StatusUnauthorized, Message: "Token has expired"}
	ErrInvalidToken       = &AppError{Code: http.StatusUnauthorized, Message: "Invalid token"}
)

// Payment gateway errors
var (
	// ErrConcurrentRequest means another invoice creation for the same order
	// is in flight. The client should retry shortly; this is not fatal.
	ErrConcurrentRequest = &AppError{Code: http.StatusConflict, Message: "Payment request already in progress, please retry shortly"}

	// ErrDuplicateInvoice means the duplicate-invoice guard tripped: the order
	// already carries a gateway invoice where none was expected.
	ErrDuplicateInvoice = &AppError{Code: http.StatusConflict, Message: "Order already has a payment invoice"}

	// ErrGatewayUnreachable means the payment gateway could not be reached.
	ErrGatewayUnreachable = &AppError{Code: http.StatusBadGateway, Message: "Payment gateway is unreachable"}

	// ErrAuthenticationFailed means the gateway rejected our credentials.
	ErrAuthenticationFailed = &AppError{Code: http.StatusBadGateway, Message: "Payment gateway authentication failed"}

	// ErrInsufficientLineData means an itemized invoice was requested for an
	// order that has no lines.
	ErrInsufficientLineData = &AppError{Code: http.StatusUnprocessableEntity, Message: "Order has no line items for an itemized invoice"}

	// ErrOrderNotPayable means the order is already paid or cancelled.
	ErrOrderNotPayable = &AppError{Code: http.StatusUnprocessableEntity, Message: "Order is not in a payable state"}
)

// NewAppError creates a new application error
func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(fieldErrors []FieldError) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Message: "Validation failed",
		Errors:  fieldErrors,
	}
}

// NewNotFoundError creates a not found error with a custom message
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Message: resource + " not found",
	}
}

// NewConflictError creates a conflict error with a custom message
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Message: message,
	}
}

// NewBadRequestError creates a bad request error with a custom message
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
	}
}

// NewGatewayError creates a bad gateway error with the originating detail
func NewGatewayError(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadGateway,
		Message: message,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError converts an error to AppError if possible
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: err.Error(),
	}
}
