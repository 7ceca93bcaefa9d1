package auth

import (
	"time"
)

// State is a Token Manager state.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthorizing     State = "authorizing"
	StateAuthenticated   State = "authenticated"
	StateRefreshing      State = "refreshing"
)

const (
	eventStartAuth      = "start_auth"
	eventExchangeOK     = "exchange_ok"
	eventExchangeFailed = "exchange_failed"
	eventRefresh        = "refresh"
	eventRefreshOK      = "refresh_ok"
	eventRefreshFailed  = "refresh_failed"
	eventLogout         = "logout"
	eventCancelAuth     = "cancel_auth"
)

// Scopes requested on every authorization.
var Scopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-library-read",
	"user-library-modify",
}

// expiryDelta is subtracted from the expiry so a token is not used in its last seconds.
const expiryDelta = 10 * time.Second

// Session is a snapshot of the manager's credentials. It is a copy; mutating it has no effect.
type Session struct {
	AccessToken   string
	RefreshToken  string
	Authenticated bool
	State         State
	TokenType     string
	Scope         string
	ExpiresAt     time.Time
}

// Valid reports whether the access token is present and not about to expire. A zero expiry never expires.
func (s Session) Valid(now time.Time) bool {
	if !s.Authenticated || s.AccessToken == "" {
		return false
	}
	if s.ExpiresAt.IsZero() {
		return true
	}
	return now.Before(s.ExpiresAt.Add(-expiryDelta))
}
