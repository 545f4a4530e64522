package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/cryptobrief/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryConfiguration represents a missing secret or environment value
	CategoryConfiguration ErrorCategory = "configuration"
	// CategoryUpstream represents a failed call to an external collaborator
	CategoryUpstream ErrorCategory = "upstream"
	// CategoryValidation represents user input that failed a local check
	CategoryValidation ErrorCategory = "validation"
	// CategoryNotFound represents an absent resource
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryAuthorization represents missing identity or insufficient tier
	CategoryAuthorization ErrorCategory = "authorization"
	// CategoryDatabase represents a persistence failure
	CategoryDatabase ErrorCategory = "database"
	// CategorySystem represents any other server-side failure
	CategorySystem ErrorCategory = "system"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// Configuration errors

// NewConfigurationError reports a required setting that is not present
func NewConfigurationError(key string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConfiguration,
		StatusCode: http.StatusInternalServerError,
		Code:       "CONFIGURATION_ERROR",
		Message:    fmt.Sprintf("%s is not configured", key),
		Details: map[string]interface{}{
			"key": key,
		},
	}
}

// Upstream errors

// NewUpstreamStatusError mirrors a non-success status returned by a provider.
// The message is the provider's response body.
func NewUpstreamStatusError(provider string, statusCode int, body string) *CategorizedError {
	if body == "" {
		body = http.StatusText(statusCode)
	}
	return &CategorizedError{
		Category:   CategoryUpstream,
		StatusCode: statusCode,
		Code:       "UPSTREAM_ERROR",
		Message:    body,
		Details: map[string]interface{}{
			"provider": provider,
			"status":   statusCode,
		},
	}
}

// NewUpstreamFailureError reports a transport-level failure talking to a
// provider. The message is the caught error's text.
func NewUpstreamFailureError(provider string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUpstream,
		StatusCode: http.StatusInternalServerError,
		Code:       "UPSTREAM_UNREACHABLE",
		Message:    cause.Error(),
		Cause:      cause,
		Details: map[string]interface{}{
			"provider": provider,
		},
	}
}

// NewMalformedResponseError reports a provider body that could not be
// decoded. Like an unreachable provider it answers 500.
func NewMalformedResponseError(provider string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUpstream,
		StatusCode: http.StatusInternalServerError,
		Code:       "MALFORMED_RESPONSE",
		Message:    fmt.Sprintf("unexpected response from %s", provider),
		Cause:      cause,
		Details: map[string]interface{}{
			"provider": provider,
		},
	}
}

// NewServiceUnavailableError creates a service unavailable error
func NewServiceUnavailableError(service string) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusServiceUnavailable,
		Code:       "SERVICE_UNAVAILABLE",
		Message:    fmt.Sprintf("service unavailable: %s", service),
		Details: map[string]interface{}{
			"service": service,
		},
	}
}

// Validation errors

// NewValidationError creates a recoverable input error
func NewValidationError(code, message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       code,
		Message:    message,
	}
}

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewConflictError reports an operation not allowed in the current UI state
func NewConflictError(code, message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusConflict,
		Code:       code,
		Message:    message,
	}
}

// Not found

// NewNotFoundError creates a not found error with a user-facing message
func NewNotFoundError(code, message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       code,
		Message:    message,
	}
}

// Authorization

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
	}
}

// NewTierRequiredError reports a feature locked behind a higher tier
func NewTierRequiredError(feature string, tier types.AccountTier) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusForbidden,
		Code:       "TIER_REQUIRED",
		Message:    fmt.Sprintf("%s is not available on the %s plan", feature, tier),
		Details: map[string]interface{}{
			"feature": feature,
			"tier":    tier,
		},
	}
}

// System errors

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       "DATABASE_ERROR",
		Message:    fmt.Sprintf("database error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// Categorize categorizes an existing error, searching the wrap chain
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}

	var svcErr *types.ServiceError
	if errors.As(err, &svcErr) {
		return &CategorizedError{
			Category:   CategorySystem,
			StatusCode: http.StatusInternalServerError,
			Code:       svcErr.Code,
			Message:    svcErr.Message,
			Details:    svcErr.Details,
		}
	}

	return NewInternalError("unexpected error", err)
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}
	return catErr.StatusCode >= 400 && catErr.StatusCode < 500
}

// IsNotFound reports whether err is a not-found condition
func IsNotFound(err error) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.Category == CategoryNotFound
}

// IsUpstreamOutage reports whether err should count against an upstream's
// health: transport failures and 5xx responses, not 4xx replies.
func IsUpstreamOutage(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}
	return catErr.Category == CategoryUpstream && catErr.StatusCode >= 500
}
