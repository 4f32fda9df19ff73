package errors

import (
	"net/http"
	"time"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Authentication errors (401xx)
	ErrUnauthorized       ErrorCode = "40100"
	ErrInvalidCredentials ErrorCode = "40101"
	ErrTokenExpired       ErrorCode = "40102"

	// Authorization errors (403xx)
	ErrForbidden ErrorCode = "40301"

	// Resource errors (404xx)
	ErrReviewNotFound   ErrorCode = "40401"
	ErrBusinessNotFound ErrorCode = "40402"
	ErrUserNotFound     ErrorCode = "40403"

	// Request errors (400xx)
	ErrInvalidRequest    ErrorCode = "40001"
	ErrValidationFailed  ErrorCode = "40002"
	ErrDuplicateOriginal ErrorCode = "40003"
	ErrNoOriginal        ErrorCode = "40004"
	ErrMissingReason     ErrorCode = "40005"
	ErrBusinessInactive  ErrorCode = "40006"
	ErrIllegalTransition ErrorCode = "40007"

	// Conflict errors (409xx)
	ErrUpdateConflict ErrorCode = "40901"

	// Server errors (500xx)
	ErrInternalServer ErrorCode = "50001"
)

// APIError represents a standardized API error
type APIError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    any       `json:"details,omitempty"`
	Timestamp  string    `json:"timestamp,omitempty"`
	Path       string    `json:"path,omitempty"`
	Method     string    `json:"method,omitempty"`
	HTTPStatus int       `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// ErrorResponse represents the error response format
type ErrorResponse struct {
	Error         APIError `json:"error"`
	RequestID     string   `json:"request_id"`
	CorrelationID string   `json:"correlation_id,omitempty"`
}

// NewErrorResponse builds a response envelope with request context attached
func NewErrorResponse(err *APIError, requestID, correlationID, path, method string) ErrorResponse {
	e := *err
	e.Timestamp = time.Now().UTC().Format(time.RFC3339)
	e.Path = path
	e.Method = method
	return ErrorResponse{
		Error:         e,
		RequestID:     requestID,
		CorrelationID: correlationID,
	}
}

// GetHTTPStatusFromCode maps an error code to its HTTP status
func GetHTTPStatusFromCode(code ErrorCode) int {
	switch code {
	case ErrUnauthorized, ErrInvalidCredentials, ErrTokenExpired:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrReviewNotFound, ErrBusinessNotFound, ErrUserNotFound:
		return http.StatusNotFound
	case ErrUpdateConflict:
		return http.StatusConflict
	case ErrInternalServer:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Common errors. User-facing messages are short and actionable; internal
// detail stays in the logs.
var (
	ErrInvalidCredentialsError = &APIError{
		Code:       ErrInvalidCredentials,
		Message:    "Invalid or missing credentials",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenExpiredError = &APIError{
		Code:       ErrTokenExpired,
		Message:    "Token has expired",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrForbiddenError = &APIError{
		Code:       ErrForbidden,
		Message:    "Access denied",
		HTTPStatus: http.StatusForbidden,
	}

	ErrReviewNotFoundError = &APIError{
		Code:       ErrReviewNotFound,
		Message:    "Review not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrBusinessNotFoundError = &APIError{
		Code:       ErrBusinessNotFound,
		Message:    "Business not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrUserNotFoundError = &APIError{
		Code:       ErrUserNotFound,
		Message:    "User not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrDuplicateOriginalError = &APIError{
		Code:       ErrDuplicateOriginal,
		Message:    "You already have a review for this business - add an update instead",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrNoOriginalError = &APIError{
		Code:       ErrNoOriginal,
		Message:    "No existing review to update - submit an original review first",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrMissingReasonError = &APIError{
		Code:       ErrMissingReason,
		Message:    "A rejection reason is required",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrBusinessInactiveError = &APIError{
		Code:       ErrBusinessInactive,
		Message:    "This business is inactive and cannot receive reviews",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUpdateConflictError = &APIError{
		Code:       ErrUpdateConflict,
		Message:    "Your update could not be saved, please try again",
		HTTPStatus: http.StatusConflict,
	}

	ErrInternalServerError = &APIError{
		Code:       ErrInternalServer,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
	}
)

// NewValidationError creates a validation error with details
func NewValidationError(details any) *APIError {
	return &APIError{
		Code:       ErrValidationFailed,
		Message:    "Validation failed",
		Details:    details,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:       ErrInvalidRequest,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}
