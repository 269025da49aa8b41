package models

import (
	"fmt"
	"net/http"
)

// ErrorCode identifies the class of a JSON API error.
type ErrorCode string

const (
	ErrorCodeBadRequest           ErrorCode = "bad_request"
	ErrorCodeMissingParameter     ErrorCode = "missing_parameter"
	ErrorCodeValidationFailed     ErrorCode = "validation_failed"
	ErrorCodePayloadTooLarge      ErrorCode = "payload_too_large"
	ErrorCodeUnsupportedMediaType ErrorCode = "unsupported_media_type"
	ErrorCodeUnauthorized         ErrorCode = "unauthorized"
	ErrorCodeResourceNotFound     ErrorCode = "resource_not_found"
	ErrorCodeMethodNotAllowed     ErrorCode = "method_not_allowed"
	ErrorCodeInternalServerError  ErrorCode = "internal_server_error"
)

// APIError is the body of every non-2xx JSON API response.
type APIError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    any       `json:"details,omitempty"`
	StatusCode int       `json:"-"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Is matches another APIError by code, so errors.Is works on wrapped values.
func (e APIError) Is(target error) bool {
	t, ok := target.(APIError)
	return ok && t.Code == e.Code
}

// NewAPIError builds an APIError. A zero status falls back to 500.
func NewAPIError(code ErrorCode, message string, details any, statusCode int) APIError {
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	return APIError{Code: code, Message: message, Details: details, StatusCode: statusCode}
}
