package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingCredentials is returned when POS client credentials are not configured
	ErrMissingCredentials = errors.New("POS credentials not configured")

	// ErrAuthentication is returned when the POS rejects the credentials or token
	ErrAuthentication = errors.New("POS authentication failed")

	// ErrBadRequest is returned when the POS rejects a request as malformed
	ErrBadRequest = errors.New("POS rejected request")

	// ErrRateLimited is returned when the POS responds with 429
	ErrRateLimited = errors.New("POS rate limit exceeded")

	// ErrPOSUnavailable is returned for network failures, 5xx responses and undecodable bodies
	ErrPOSUnavailable = errors.New("POS API request failed")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrUnknownItem is returned when a quote references an id that is not in the catalog
	ErrUnknownItem = errors.New("unknown catalog item")

	// ErrItemUnavailable is returned when a quote selects an unavailable item
	ErrItemUnavailable = errors.New("catalog item unavailable")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrNoSnapshot is returned when no catalog snapshot has been loaded yet
	ErrNoSnapshot = errors.New("no catalog snapshot available")
)

// DefaultRetryAfter is used when a 429 response carries no usable Retry-After header.
const DefaultRetryAfter = 60 * time.Second

// ConfigError reports a required setting that is missing.
type ConfigError struct {
	Setting string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s is not set", ErrMissingCredentials, e.Setting)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingCredentials
}

// APIError carries the HTTP status of a failed POS call. Err is one of the
// sentinel errors above and decides how the call is retried.
type APIError struct {
	Op         string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v (status %d)", e.Op, e.Err, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err may succeed on another attempt.
// Credential, configuration and malformed-request failures never do.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrMissingCredentials),
		errors.Is(err, ErrAuthentication),
		errors.Is(err, ErrBadRequest):
		return false
	}
	return true
}

// RetryAfterOf returns the server-suggested wait carried by a rate-limit error.
func RetryAfterOf(err error) (time.Duration, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && errors.Is(apiErr.Err, ErrRateLimited) {
		return apiErr.RetryAfter, true
	}
	return 0, false
}
