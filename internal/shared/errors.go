package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrInvalidState     = fmt.Errorf("invalid state parameter")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest          = fmt.Errorf("API request failed")
	ErrPlaybackUnsupported = fmt.Errorf("playback not supported")
	ErrAlbumNotFound       = fmt.Errorf("album not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// UpstreamError is returned when Tidal answers with a non-2xx status.
//
// The body is kept for logging and is never sent back to HTTP clients.
type UpstreamError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("tidal API error: %s %s: status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Body)
}

// Unwrap lets callers match any upstream failure with [ErrAPIRequest].
func (e *UpstreamError) Unwrap() error {
	return ErrAPIRequest
}

// IsAuthError reports whether err means the caller has no usable credential:
// none stored, rejected by Tidal, or expired without a way to refresh it.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrAuthFailed) ||
		errors.Is(err, ErrRefreshFailed) ||
		errors.Is(err, ErrNoRefreshToken)
}
