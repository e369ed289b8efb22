// Package errors defines the coded application errors surfaced to callers
// of the aggregation layer.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeInvalidURL       ErrCode = "INVALID_URL"
	ErrCodeUnauthorized     ErrCode = "UNAUTHORIZED"
	ErrCodeRateLimited      ErrCode = "RATE_LIMITED"
	ErrCodeUpstream         ErrCode = "UPSTREAM"
	ErrCodeNotFound         ErrCode = "NOT_FOUND"
	ErrCodeStatsUnavailable ErrCode = "STATS_UNAVAILABLE"
	ErrCodeBadRequest       ErrCode = "BAD_REQUEST"
	ErrCodeInternal         ErrCode = "INTERNAL_ERROR"
	ErrCodeTimeout          ErrCode = "TIMEOUT"
)

// resetTimeLayout renders a rate-limit reset the way a wall clock reads.
const resetTimeLayout = "3:04:05 PM"

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Err     error

	// Status is the upstream HTTP status, when there was one.
	Status int
	// ResetAt is set for rate-limit errors whose reset time is known.
	ResetAt time.Time
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewInvalidURLError creates an error for a URL that is not a GitHub repository URL.
func NewInvalidURLError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidURL,
		Message: message,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Status:  401,
	}
}

// NewRateLimitedError creates a rate limit error. A zero reset renders as "unknown".
func NewRateLimitedError(reset time.Time) *AppError {
	resetText := "unknown"
	if !reset.IsZero() {
		resetText = reset.Local().Format(resetTimeLayout)
	}
	return &AppError{
		Code:    ErrCodeRateLimited,
		Message: fmt.Sprintf("GitHub API rate limit exceeded. Please try again after %s, or provide an access token.", resetText),
		Status:  403,
		ResetAt: reset,
	}
}

// NewUpstreamError creates an error for an unexpected GitHub response.
func NewUpstreamError(status int, statusText, message string) *AppError {
	if message == "" {
		message = "Unknown error"
	}
	return &AppError{
		Code:    ErrCodeUpstream,
		Message: fmt.Sprintf("failed to fetch from GitHub: %s - %s", statusText, message),
		Status:  status,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  404,
	}
}

// NewStatsUnavailableError is returned when GitHub kept answering 202 for a stats endpoint.
func NewStatsUnavailableError(endpoint string, attempts int) *AppError {
	return &AppError{
		Code:    ErrCodeStatsUnavailable,
		Message: fmt.Sprintf("statistics for %s are still being computed after %d attempts", endpoint, attempts),
		Status:  202,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// NewTimeoutError is returned when a request runs past its overall deadline.
func NewTimeoutError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeTimeout,
		Message: "the request took too long to complete. Try again, or limit the number of forks.",
		Err:     err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if there is none.
func CodeOf(err error) ErrCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsRateLimited checks if the error is a rate limited error
func IsRateLimited(err error) bool {
	return CodeOf(err) == ErrCodeRateLimited
}

// IsUnauthorized checks if the error is an authentication error
func IsUnauthorized(err error) bool {
	return CodeOf(err) == ErrCodeUnauthorized
}

// IsInvalidURL checks if the error is an invalid URL error
func IsInvalidURL(err error) bool {
	return CodeOf(err) == ErrCodeInvalidURL
}

// IsStatsUnavailable checks if the error reports stats that never finished computing
func IsStatsUnavailable(err error) bool {
	return CodeOf(err) == ErrCodeStatsUnavailable
}
