package errors

import (
	"net/http"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// TestProperty_ErrorResponse_StandardFormat tests that all error responses
// follow the standard format: *for any* API error, the response includes
// code, message, timestamp, request context, and request id.
func TestProperty_ErrorResponse_StandardFormat(t *testing.T) {
	errorCodes := []ErrorCode{
		ErrInvalidRequest, ErrValidationFailed,
		ErrUnauthorized, ErrInvalidCredentials, ErrTokenExpired,
		ErrForbidden,
		ErrReviewNotFound, ErrBusinessNotFound, ErrUserNotFound,
		ErrDuplicateOriginal, ErrNoOriginal, ErrMissingReason,
		ErrBusinessInactive, ErrIllegalTransition,
		ErrUpdateConflict,
		ErrInternalServer,
	}

	rapid.Check(t, func(rt *rapid.T) {
		code := rapid.SampledFrom(errorCodes).Draw(rt, "code")
		message := rapid.StringMatching(`[a-zA-Z0-9 .,!?]{10,100}`).Draw(rt, "message")
		requestID := rapid.StringMatching(`[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`).Draw(rt, "requestID")

		paths := []string{"/api/v1/businesses", "/api/v1/reviews", "/api/v1/admin/verification/proofs"}
		methods := []string{"GET", "POST", "PUT", "DELETE"}
		path := rapid.SampledFrom(paths).Draw(rt, "path")
		method := rapid.SampledFrom(methods).Draw(rt, "method")

		apiErr := &APIError{
			Code:       code,
			Message:    message,
			HTTPStatus: GetHTTPStatusFromCode(code),
		}

		response := NewErrorResponse(apiErr, requestID, requestID, path, method)

		if response.Error.Code == "" {
			t.Fatal("PROPERTY VIOLATION: Error response must have error code")
		}
		if response.Error.Message == "" {
			t.Fatal("PROPERTY VIOLATION: Error response must have message")
		}
		if response.Error.Timestamp == "" {
			t.Fatal("PROPERTY VIOLATION: Error response must have timestamp")
		}
		if _, err := time.Parse(time.RFC3339, response.Error.Timestamp); err != nil {
			t.Fatalf("PROPERTY VIOLATION: Timestamp must be valid RFC3339 format: %v", err)
		}
		if response.RequestID == "" {
			t.Fatal("PROPERTY VIOLATION: Error response must have request_id")
		}
		if response.Error.Path != path {
			t.Fatalf("PROPERTY VIOLATION: Path should be %s, got %s", path, response.Error.Path)
		}
		if response.Error.Method != method {
			t.Fatalf("PROPERTY VIOLATION: Method should be %s, got %s", method, response.Error.Method)
		}
	})
}

// TestProperty_ErrorResponse_HTTPStatusMapping tests that client error codes
// always map to 4xx statuses and server errors to 5xx.
func TestProperty_ErrorResponse_HTTPStatusMapping(t *testing.T) {
	clientErrorCodes := []ErrorCode{
		ErrInvalidRequest, ErrValidationFailed,
		ErrUnauthorized, ErrInvalidCredentials, ErrTokenExpired,
		ErrForbidden,
		ErrReviewNotFound, ErrBusinessNotFound, ErrUserNotFound,
		ErrDuplicateOriginal, ErrNoOriginal, ErrMissingReason,
		ErrBusinessInactive, ErrIllegalTransition,
		ErrUpdateConflict,
	}

	rapid.Check(t, func(rt *rapid.T) {
		code := rapid.SampledFrom(clientErrorCodes).Draw(rt, "code")
		status := GetHTTPStatusFromCode(code)

		if status < 400 || status >= 500 {
			t.Fatalf("PROPERTY VIOLATION: Client error code %s should map to 4xx status, got %d", code, status)
		}
	})
}

func TestGetHTTPStatusFromCode(t *testing.T) {
	tests := []struct {
		code   ErrorCode
		status int
	}{
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrTokenExpired, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrReviewNotFound, http.StatusNotFound},
		{ErrBusinessNotFound, http.StatusNotFound},
		{ErrUpdateConflict, http.StatusConflict},
		{ErrDuplicateOriginal, http.StatusBadRequest},
		{ErrNoOriginal, http.StatusBadRequest},
		{ErrMissingReason, http.StatusBadRequest},
		{ErrInternalServer, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := GetHTTPStatusFromCode(tt.code); got != tt.status {
			t.Errorf("GetHTTPStatusFromCode(%s) = %d, want %d", tt.code, got, tt.status)
		}
	}
}

func TestSentinelErrorsCarryMatchingStatus(t *testing.T) {
	sentinels := []*APIError{
		ErrInvalidCredentialsError, ErrTokenExpiredError, ErrForbiddenError,
		ErrReviewNotFoundError, ErrBusinessNotFoundError, ErrUserNotFoundError,
		ErrDuplicateOriginalError, ErrNoOriginalError, ErrMissingReasonError,
		ErrBusinessInactiveError, ErrUpdateConflictError, ErrInternalServerError,
	}

	for _, s := range sentinels {
		if s.HTTPStatus != GetHTTPStatusFromCode(s.Code) {
			t.Errorf("Sentinel %s carries status %d, code maps to %d",
				s.Code, s.HTTPStatus, GetHTTPStatusFromCode(s.Code))
		}
		if s.Error() != s.Message {
			t.Errorf("Sentinel %s Error() does not return its message", s.Code)
		}
	}
}
