// Package shopify provides domain types for the Shopify Admin GraphQL integration.
package shopify

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Standard domain errors.
var (
	ErrQueryFailed      = errors.New("shopify query failed")
	ErrParseFailed      = errors.New("shopifyql parse failed")
	ErrThrottled        = errors.New("shopify query throttled")
	ErrUnauthorized     = errors.New("shopify access token rejected")
	ErrMissingStoreURL  = errors.New("shopify store url not configured")
	ErrMissingToken     = errors.New("shopify access token not configured")
	ErrMalformedPayload = errors.New("malformed shopify response")
)

// GraphQL error codes reported under errors[].extensions.code.
const (
	CodeThrottled     = "THROTTLED"
	CodeAccessDenied  = "ACCESS_DENIED"
	CodeInternalError = "INTERNAL_SERVER_ERROR"
)

// GraphQLError is a single entry of a GraphQL "errors" array.
type GraphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// QueryError represents a failed Admin API call, either at HTTP or GraphQL level.
type QueryError struct {
	StatusCode int
	Errors     []GraphQLError
	Body       string
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if len(e.Errors) > 0 {
		msgs := make([]string, 0, len(e.Errors))
		for _, ge := range e.Errors {
			msgs = append(msgs, ge.Message)
		}
		return fmt.Sprintf("shopify graphql: %s", strings.Join(msgs, "; "))
	}
	if e.Body != "" {
		return fmt.Sprintf("shopify http %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("shopify http %d", e.StatusCode)
}

// Is implements errors.Is for QueryError.
func (e *QueryError) Is(target error) bool {
	switch target {
	case ErrQueryFailed:
		return true
	case ErrThrottled:
		return e.hasCode(CodeThrottled) || e.StatusCode == http.StatusTooManyRequests
	case ErrUnauthorized:
		return e.hasCode(CodeAccessDenied) || e.StatusCode == http.StatusUnauthorized ||
			e.StatusCode == http.StatusForbidden
	default:
		return false
	}
}

func (e *QueryError) hasCode(code string) bool {
	for _, ge := range e.Errors {
		if ge.Extensions.Code == code {
			return true
		}
	}
	return false
}

// ParseError is a ShopifyQL parse error returned inside a successful GraphQL response.
type ParseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParseErrors aggregates the parse errors of one ShopifyQL query.
type ParseErrors []ParseError

// Error implements the error interface.
func (p ParseErrors) Error() string {
	msgs := make([]string, 0, len(p))
	for _, pe := range p {
		msgs = append(msgs, pe.Message)
	}
	return "shopifyql: " + strings.Join(msgs, "; ")
}

// Is implements errors.Is for ParseErrors.
func (p ParseErrors) Is(target error) bool {
	return target == ErrParseFailed || target == ErrQueryFailed
}
