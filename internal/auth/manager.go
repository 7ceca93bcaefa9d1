package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/floater/internal/shared"
	"github.com/desertthunder/floater/internal/store"
	"github.com/looplab/fsm"
	"golang.org/x/oauth2"
)

const (
	DefaultAccountsURL = "https://accounts.spotify.com"
	DefaultRedirectURI = "http://127.0.0.1:8888/callback"
)

// Config configures a [Manager]. ClientID and ClientSecret are sent only as HTTP Basic credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// AccountsURL is the base of /authorize and /api/token.
	AccountsURL string
	HTTPClient  *http.Client
	Store       store.Store
	Logger      *log.Logger
	Now         func() time.Time
}

// Manager owns the OAuth2 session: authorization URL, code exchange, refresh and logout.
//
// Exchange, refresh and logout are serialized by opMu. Session reads take mu and never wait on the network.
type Manager struct {
	oauth  *oauth2.Config
	client *http.Client
	store  store.Store
	logger *log.Logger
	now    func() time.Time

	opMu sync.Mutex

	mu      sync.RWMutex
	machine *fsm.FSM
	session Session

	subMu       sync.Mutex
	subscribers []func(Session)
}

// NewManager validates cfg and returns an unauthenticated manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client id and secret are required", shared.ErrMissingCredentials)
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: credential store is required", shared.ErrInvalidConfig)
	}

	accounts := strings.TrimRight(cfg.AccountsURL, "/")
	if accounts == "" {
		accounts = DefaultAccountsURL
	}
	redirect := cfg.RedirectURI
	if redirect == "" {
		redirect = DefaultRedirectURI
	}

	m := &Manager{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirect,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   accounts + "/authorize",
				TokenURL:  accounts + "/api/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		client: cfg.HTTPClient,
		store:  cfg.Store,
		logger: cfg.Logger,
		now:    cfg.Now,
	}
	if m.client == nil {
		m.client = http.DefaultClient
	}
	if m.logger == nil {
		m.logger = shared.NopLogger()
	}
	m.logger = m.logger.With("component", "auth")
	if m.now == nil {
		m.now = time.Now
	}

	m.machine = fsm.NewFSM(
		string(StateUnauthenticated),
		fsm.Events{
			{Name: eventStartAuth, Src: []string{string(StateUnauthenticated), string(StateAuthorizing)}, Dst: string(StateAuthorizing)},
			{Name: eventExchangeOK, Src: []string{string(StateUnauthenticated), string(StateAuthorizing)}, Dst: string(StateAuthenticated)},
			{Name: eventExchangeFailed, Src: []string{string(StateUnauthenticated), string(StateAuthorizing)}, Dst: string(StateUnauthenticated)},
			{Name: eventRefresh, Src: []string{string(StateAuthenticated), string(StateUnauthenticated)}, Dst: string(StateRefreshing)},
			{Name: eventRefreshOK, Src: []string{string(StateRefreshing)}, Dst: string(StateAuthenticated)},
			{Name: eventRefreshFailed, Src: []string{string(StateRefreshing)}, Dst: string(StateUnauthenticated)},
			{Name: eventLogout, Src: []string{string(StateUnauthenticated), string(StateAuthorizing), string(StateAuthenticated), string(StateRefreshing)}, Dst: string(StateUnauthenticated)},
			{Name: eventCancelAuth, Src: []string{string(StateAuthorizing)}, Dst: string(StateUnauthenticated)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				m.logger.Debug("auth state changed", "event", e.Event, "from", e.Src, "to", e.Dst)
			},
		},
	)
	m.session.State = StateUnauthenticated
	return m, nil
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return State(m.machine.Current())
}

// Session returns a snapshot of the current session.
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.session
	s.State = State(m.machine.Current())
	return s
}

// AccessToken returns the current bearer token, if authenticated.
func (m *Manager) AccessToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.session.Authenticated || m.session.AccessToken == "" {
		return "", false
	}
	return m.session.AccessToken, true
}

// Valid reports whether the access token is usable right now.
func (m *Manager) Valid() bool {
	return m.Session().Valid(m.now())
}

// OnChange registers fn to be called with a snapshot after every state change.
func (m *Manager) OnChange(fn func(Session)) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

func (m *Manager) publish() {
	snap := m.Session()

	m.subMu.Lock()
	subs := append([]func(Session){}, m.subscribers...)
	m.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// transition fires event. A transition to the current state is not an error. Callers hold mu.
func (m *Manager) transition(event string) error {
	err := m.machine.Event(context.Background(), event)
	if err == nil {
		return nil
	}

	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return nil
	}
	return fmt.Errorf("auth: %s from %s: %w", event, m.machine.Current(), err)
}

// StartAuthentication moves to Authorizing and returns the URL the user must visit.
//
// Calling it again while authorizing issues a fresh URL for the new state.
func (m *Manager) StartAuthentication(state string) (string, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	if !m.machine.Can(eventStartAuth) {
		current := m.machine.Current()
		m.mu.Unlock()
		return "", fmt.Errorf("%w: cannot start authorization while %s", shared.ErrAuthFailed, current)
	}
	if err := m.transition(eventStartAuth); err != nil {
		m.mu.Unlock()
		return "", err
	}
	m.mu.Unlock()

	m.publish()
	return m.oauth.AuthCodeURL(state), nil
}

// CancelAuthentication abandons a pending authorization.
func (m *Manager) CancelAuthentication() {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	if State(m.machine.Current()) != StateAuthorizing {
		m.mu.Unlock()
		return
	}
	if err := m.transition(eventCancelAuth); err != nil {
		m.logger.Warn("failed to cancel authorization", "error", err)
	}
	m.mu.Unlock()

	m.publish()
}

// ExchangeCode trades an authorization code for tokens.
//
// On failure the manager is left Unauthenticated and nothing about the session changes.
func (m *Manager) ExchangeCode(ctx context.Context, code string) error {
	if code == "" {
		return shared.ErrMissingCode
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.RLock()
	allowed := m.machine.Can(eventExchangeOK)
	current := m.machine.Current()
	m.mu.RUnlock()
	if !allowed {
		return fmt.Errorf("%w: cannot exchange a code while %s", shared.ErrAuthFailed, current)
	}

	tk, err := m.oauth.Exchange(m.withClient(ctx), code)
	if err != nil {
		m.mu.Lock()
		if terr := m.transition(eventExchangeFailed); terr != nil {
			m.logger.Warn("failed to record exchange failure", "error", terr)
		}
		m.mu.Unlock()
		m.publish()

		m.logger.Error("code exchange failed", "error", err)
		return classifyTokenError(shared.ErrAuthFailed, err)
	}

	if tk.RefreshToken != "" {
		if err := m.store.Save(tk.RefreshToken); err != nil {
			m.logger.Warn("failed to persist refresh token", "error", err)
		}
	}

	m.mu.Lock()
	m.apply(tk)
	if err := m.transition(eventExchangeOK); err != nil {
		m.logger.Warn("unexpected transition error", "error", err)
	}
	m.mu.Unlock()
	m.publish()

	m.logger.Info("authenticated", "access_token", shared.Redact(tk.AccessToken), "expires_at", tk.Expiry)
	return nil
}

// Refresh exchanges the refresh token for a new access token.
//
// Without an in-memory or stored refresh token, or while an authorization is pending, it returns
// [shared.ErrRefreshUnavailable] and changes nothing. If ctx ends first the session is left as it was.
// Any other failure clears the stored and in-memory tokens and leaves the manager Unauthenticated.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.RLock()
	seen := m.session.AccessToken
	m.mu.RUnlock()

	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.RLock()
	refreshToken := m.session.RefreshToken
	coalesced := m.session.Authenticated && m.session.AccessToken != seen
	prior := State(m.machine.Current())
	m.mu.RUnlock()

	// Another caller refreshed while this one waited for opMu.
	if coalesced {
		return nil
	}
	if prior == StateAuthorizing {
		return fmt.Errorf("%w: authorization in progress", shared.ErrRefreshUnavailable)
	}

	if refreshToken == "" {
		stored, ok, err := m.store.Load()
		if err != nil {
			return fmt.Errorf("failed to load stored refresh token: %w", err)
		}
		if !ok {
			return shared.ErrRefreshUnavailable
		}
		refreshToken = stored
	}

	m.mu.Lock()
	if err := m.transition(eventRefresh); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	tk, err := m.oauth.TokenSource(m.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil && ctx.Err() != nil {
		m.logger.Debug("token refresh abandoned", "error", err)

		m.mu.Lock()
		m.machine.SetState(string(prior))
		m.mu.Unlock()
		m.publish()

		return fmt.Errorf("token refresh abandoned: %w", ctx.Err())
	}
	if err != nil {
		m.logger.Error("token refresh failed, clearing credentials", "error", err)
		if cerr := m.store.Clear(); cerr != nil {
			m.logger.Warn("failed to clear stored refresh token", "error", cerr)
		}

		m.mu.Lock()
		m.session = Session{}
		if terr := m.transition(eventRefreshFailed); terr != nil {
			m.logger.Warn("unexpected transition error", "error", terr)
		}
		m.mu.Unlock()
		m.publish()

		return classifyTokenError(shared.ErrRefreshFailed, err)
	}

	// The returned token carries the old refresh token forward when the server omits one.
	if tk.RefreshToken == "" {
		tk.RefreshToken = refreshToken
	}
	if tk.RefreshToken != refreshToken {
		if err := m.store.Save(tk.RefreshToken); err != nil {
			m.logger.Warn("failed to persist rotated refresh token", "error", err)
		}
	}

	m.mu.Lock()
	m.apply(tk)
	if err := m.transition(eventRefreshOK); err != nil {
		m.logger.Warn("unexpected transition error", "error", err)
	}
	m.mu.Unlock()
	m.publish()

	m.logger.Debug("refreshed access token", "access_token", shared.Redact(tk.AccessToken), "expires_at", tk.Expiry)
	return nil
}

// Restore performs silent re-authentication from a stored refresh token. A missing token is not an error.
func (m *Manager) Restore(ctx context.Context) error {
	err := m.Refresh(ctx)
	if errors.Is(err, shared.ErrRefreshUnavailable) {
		m.logger.Debug("no stored refresh token")
		return nil
	}
	return err
}

// LogOut forgets every credential. Calling it repeatedly is harmless.
func (m *Manager) LogOut() error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	err := m.store.Clear()

	m.mu.Lock()
	m.session = Session{}
	if terr := m.transition(eventLogout); terr != nil {
		m.logger.Warn("unexpected transition error", "error", terr)
	}
	m.mu.Unlock()
	m.publish()

	if err != nil {
		return fmt.Errorf("failed to clear stored credentials: %w", err)
	}
	return nil
}

// apply copies tk into the session. Callers hold mu.
func (m *Manager) apply(tk *oauth2.Token) {
	m.session.AccessToken = tk.AccessToken
	if tk.RefreshToken != "" {
		m.session.RefreshToken = tk.RefreshToken
	}
	m.session.Authenticated = true
	m.session.TokenType = tk.TokenType
	m.session.ExpiresAt = tk.Expiry
	if scope, ok := tk.Extra("scope").(string); ok {
		m.session.Scope = scope
	}
}

func (m *Manager) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.client)
}

// classifyTokenError maps oauth2 failures onto the shared taxonomy while keeping kind matchable.
func classifyTokenError(kind, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		bad := &shared.BadResponseError{StatusCode: re.Response.StatusCode, Method: http.MethodPost, Path: "/api/token"}
		return fmt.Errorf("%w: %w", kind, bad)
	}

	var urlErr *url.Error
	var netErr net.Error
	switch {
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		return fmt.Errorf("%w: %w: %w", kind, shared.ErrTransport, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", kind, err)
	default:
		// The request completed, so the token response itself was unusable.
		return fmt.Errorf("%w: %w: %v", kind, shared.ErrDecode, err)
	}
}
