package shared

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrStateMismatch    = fmt.Errorf("state mismatch")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenRejected    = fmt.Errorf("token exchange rejected")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")

	// Upstream errors
	ErrTransport  = fmt.Errorf("upstream transport failure")
	ErrAPIRequest = fmt.Errorf("API request failed")
	ErrPageLimit  = fmt.Errorf("pagination limit exceeded")

	// Input validation errors
	ErrInvalidRequest  = fmt.Errorf("invalid request")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// ErrUnauthenticated is returned whenever a session has no access token.
var ErrUnauthenticated = ErrNotAuthenticated

// UpstreamTokenError is returned when the token endpoint rejects an exchange.
type UpstreamTokenError struct {
	Code        string
	Description string
}

func (e *UpstreamTokenError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%v: %s", ErrTokenRejected, e.Code)
	}
	return fmt.Sprintf("%v: %s (%s)", ErrTokenRejected, e.Code, e.Description)
}

func (e *UpstreamTokenError) Unwrap() error { return ErrTokenRejected }

// UpstreamError is a non-2xx response from a data or transport API call.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%v: status %d: %s", ErrAPIRequest, e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error { return ErrAPIRequest }

// StatusFor maps an error to the HTTP status returned at the API boundary.
//
// Upstream statuses are mirrored when they are client or server errors; anything unclassified is a 500.
func StatusFor(err error) int {
	var upstream *UpstreamError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.As(err, &upstream) && upstream.Status >= 400 && upstream.Status < 600:
		return upstream.Status
	default:
		return http.StatusInternalServerError
	}
}

// RedirectCode returns the machine-readable error code carried back to the browser after a failed handshake.
func RedirectCode(err error) string {
	var tokenErr *UpstreamTokenError
	switch {
	case errors.Is(err, ErrStateMismatch):
		return "state_mismatch"
	case errors.As(err, &tokenErr) && tokenErr.Code != "":
		return tokenErr.Code
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return "server_error"
	}
}
