// Package meta provides domain types for the Meta (Facebook) Marketing API integration.
package meta

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard domain errors.
var (
	ErrRateLimited      = errors.New("Graph API rate limit exceeded")
	ErrInvalidToken     = errors.New("invalid or expired access token")
	ErrPermissionDenied = errors.New("permission denied for ad account")
	ErrInvalidRequest   = errors.New("invalid request parameters")
)

// ErrorCode is a numeric Graph API error code.
type ErrorCode int

// Graph API error codes seen on the insights endpoint.
const (
	CodeUnknown          ErrorCode = 1
	CodeServiceTemporary ErrorCode = 2
	CodeAppRateLimit     ErrorCode = 4
	CodePermission       ErrorCode = 10
	CodeUserRequestLimit ErrorCode = 17
	CodeInvalidParam     ErrorCode = 100
	CodeInvalidToken     ErrorCode = 190
)

// IsRetryable reports whether the code signals the user request limit.
// Only this code is retried; everything else fails the call immediately.
func (c ErrorCode) IsRetryable() bool {
	return c == CodeUserRequestLimit
}

// APIError represents the error envelope returned by the Graph API.
type APIError struct {
	Code       ErrorCode `json:"code"`
	Subcode    int       `json:"error_subcode,omitempty"`
	Type       string    `json:"type"`
	Message    string    `json:"message"`
	FBTraceID  string    `json:"fbtrace_id,omitempty"`
	StatusCode int       `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.FBTraceID != "" {
		return fmt.Sprintf("graph api [%d]: %s (fbtrace_id: %s)", e.Code, e.Message, e.FBTraceID)
	}
	return fmt.Sprintf("graph api [%d]: %s", e.Code, e.Message)
}

// Is implements errors.Is for APIError.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Code.IsRetryable()
	case ErrInvalidToken:
		return e.Code == CodeInvalidToken
	case ErrPermissionDenied:
		return e.Code == CodePermission || e.StatusCode == http.StatusForbidden
	case ErrInvalidRequest:
		return e.Code == CodeInvalidParam
	default:
		return false
	}
}

// IsRetryable returns true if this error is safe to retry.
func (e *APIError) IsRetryable() bool {
	return e.Code.IsRetryable()
}

// NewAPIError creates a new APIError.
func NewAPIError(code ErrorCode, message string, statusCode int) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// ErrorEnvelope is the top-level error body of a failed Graph API call.
type ErrorEnvelope struct {
	Error *APIError `json:"error"`
}
