package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed         = fmt.Errorf("authentication failed")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrRefreshFailed      = fmt.Errorf("token refresh failed")
	ErrRefreshUnavailable = fmt.Errorf("no refresh token available")
	ErrFlowCancelled      = fmt.Errorf("authorization flow cancelled")
	ErrMissingCode        = fmt.Errorf("redirect is missing the authorization code")
	ErrStateMismatch      = fmt.Errorf("redirect state does not match")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// API and service errors
	ErrInvalidURL     = fmt.Errorf("invalid endpoint URL")
	ErrTransport      = fmt.Errorf("transport error")
	ErrBadResponse    = fmt.Errorf("bad response")
	ErrNoData         = fmt.Errorf("response contained no data")
	ErrDecode         = fmt.Errorf("failed to decode response")
	ErrNothingPlaying = fmt.Errorf("nothing is playing")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// BadResponseError carries the status code of a non-2xx response.
//
// It matches [ErrBadResponse] with [errors.Is].
type BadResponseError struct {
	StatusCode int
	Method     string
	Path       string
}

func (e *BadResponseError) Error() string {
	if e.Method == "" && e.Path == "" {
		return fmt.Sprintf("%v: status %d", ErrBadResponse, e.StatusCode)
	}
	return fmt.Sprintf("%v: %s %s returned status %d", ErrBadResponse, e.Method, e.Path, e.StatusCode)
}

func (e *BadResponseError) Is(target error) bool {
	return target == ErrBadResponse
}

// StatusCode extracts the HTTP status from a [BadResponseError] anywhere in err's chain.
func StatusCode(err error) (int, bool) {
	var bad *BadResponseError
	if errors.As(err, &bad) {
		return bad.StatusCode, true
	}
	return 0, false
}
