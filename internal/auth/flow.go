package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/floater/internal/server"
	"github.com/desertthunder/floater/internal/shared"
)

// DefaultAuthTimeout bounds how long the user has to finish consenting in the browser.
const DefaultAuthTimeout = 2 * time.Minute

// Authorizer drives the interactive consent round trip and returns the authorization code.
type Authorizer interface {
	Authorize(ctx context.Context, authURL string) (code string, err error)
}

// ParseRedirect extracts the authorization code from a redirect URL.
//
// An empty wantState skips the state check.
func ParseRedirect(rawURL, wantState string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidURL, err)
	}
	return codeFromRedirect(u, wantState)
}

func codeFromRedirect(u *url.URL, wantState string) (string, error) {
	q := u.Query()

	if e := q.Get("error"); e != "" {
		if e == "access_denied" {
			return "", shared.ErrFlowCancelled
		}
		return "", fmt.Errorf("%w: %s %s", shared.ErrAuthFailed, e, q.Get("error_description"))
	}

	if wantState != "" && q.Get("state") != wantState {
		return "", shared.ErrStateMismatch
	}

	code := q.Get("code")
	if code == "" {
		return "", shared.ErrMissingCode
	}
	return code, nil
}

// BrowserAuthorizer opens the system browser and waits for the redirect on a loopback server.
type BrowserAuthorizer struct {
	// RedirectURI must match the redirect registered with the Spotify app.
	RedirectURI string
	Timeout     time.Duration
	// Open presents the URL to the user. Defaults to [shared.OpenBrowser].
	Open   func(string) error
	Logger *log.Logger
}

// NewBrowserAuthorizer returns an authorizer listening on redirectURI.
func NewBrowserAuthorizer(redirectURI string, timeout time.Duration, logger *log.Logger) *BrowserAuthorizer {
	return &BrowserAuthorizer{RedirectURI: redirectURI, Timeout: timeout, Logger: logger}
}

// Authorize serves the callback, opens authURL and waits for the first redirect.
//
// The expected state is read from authURL. Cancellation and timeout both report [shared.ErrFlowCancelled].
func (a *BrowserAuthorizer) Authorize(ctx context.Context, authURL string) (string, error) {
	logger := a.Logger
	if logger == nil {
		logger = shared.NopLogger()
	}
	logger = logger.With("component", "authorizer")

	target, err := url.Parse(authURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidURL, err)
	}
	wantState := target.Query().Get("state")

	redirectURI := a.RedirectURI
	if redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}
	redirect, err := url.Parse(redirectURI)
	if err != nil || redirect.Host == "" {
		return "", fmt.Errorf("%w: redirect uri %q", shared.ErrInvalidURL, redirectURI)
	}

	handler := server.NewCallbackHandler(redirect.Path, func(u *url.URL) error {
		_, err := codeFromRedirect(u, wantState)
		return err
	})
	router := server.NewBasicRouter()
	router.Use(server.Recover(logger), server.Logging(logger))
	router.Handler(handler)

	srv, err := server.Listen(redirect.Host, router, logger)
	if err != nil {
		return "", err
	}
	srv.Serve()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("callback server shutdown", "error", err)
		}
	}()

	open := a.Open
	if open == nil {
		open = shared.OpenBrowser
	}
	if err := open(authURL); err != nil {
		logger.Warn("could not open browser, visit the URL manually", "url", authURL, "error", err)
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultAuthTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-handler.Result():
		if result.Err != nil {
			return "", result.Err
		}
		return codeFromRedirect(result.URL, wantState)
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", shared.ErrFlowCancelled, ctx.Err())
	case <-timer.C:
		return "", fmt.Errorf("%w: %w after %s", shared.ErrFlowCancelled, shared.ErrTimeout, timeout)
	}
}

// Login runs the full authorization code flow: start, consent, exchange.
//
// A failed consent round trip returns the manager to Unauthenticated.
func Login(ctx context.Context, m *Manager, a Authorizer) error {
	state, err := shared.GenerateState()
	if err != nil {
		return err
	}

	authURL, err := m.StartAuthentication(state)
	if err != nil {
		return err
	}

	code, err := a.Authorize(ctx, authURL)
	if err != nil {
		m.CancelAuthentication()
		if errors.Is(err, shared.ErrFlowCancelled) {
			m.logger.Info("authorization cancelled")
		}
		return err
	}

	return m.ExchangeCode(ctx, code)
}
