package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/desertthunder/floater/internal/shared"
	"github.com/desertthunder/floater/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedirect(t *testing.T) {
	tc := []struct {
		name    string
		raw     string
		state   string
		want    string
		wantErr error
	}{
		{name: "code", raw: "http://127.0.0.1:8888/callback?code=abc", want: "abc"},
		{name: "code with state", raw: "http://127.0.0.1:8888/callback?code=abc&state=s1", state: "s1", want: "abc"},
		{name: "custom scheme", raw: "floater://callback?code=xyz", want: "xyz"},
		{name: "missing code", raw: "http://127.0.0.1:8888/callback", wantErr: shared.ErrMissingCode},
		{name: "empty code", raw: "http://127.0.0.1:8888/callback?code=", wantErr: shared.ErrMissingCode},
		{name: "access denied", raw: "http://127.0.0.1:8888/callback?error=access_denied&state=s1", state: "s1", wantErr: shared.ErrFlowCancelled},
		{name: "other error", raw: "http://127.0.0.1:8888/callback?error=server_error", wantErr: shared.ErrAuthFailed},
		{name: "state mismatch", raw: "http://127.0.0.1:8888/callback?code=abc&state=evil", state: "s1", wantErr: shared.ErrStateMismatch},
		{name: "bad url", raw: "http://[::1", wantErr: shared.ErrInvalidURL},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRedirect(tt.raw, tt.state)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func freeRedirect(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return fmt.Sprintf("http://%s/callback", addr)
}

// browser simulates the user approving consent by following the redirect with query.
func browser(t *testing.T, query func(state string) url.Values) func(string) error {
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		redirect := u.Query().Get("redirect_uri")
		state := u.Query().Get("state")

		go func() {
			resp, err := http.Get(redirect + "?" + query(state).Encode())
			if err != nil {
				t.Errorf("redirect failed: %v", err)
				return
			}
			resp.Body.Close()
		}()
		return nil
	}
}

func TestBrowserAuthorizer(t *testing.T) {
	t.Run("returns code from redirect", func(t *testing.T) {
		redirect := freeRedirect(t)
		a := NewBrowserAuthorizer(redirect, 5*time.Second, nil)
		a.Open = browser(t, func(state string) url.Values {
			return url.Values{"code": {"the-code"}, "state": {state}}
		})

		authURL := "https://accounts.spotify.com/authorize?" + url.Values{
			"redirect_uri": {redirect},
			"state":        {"s-123"},
		}.Encode()

		code, err := a.Authorize(context.Background(), authURL)
		require.NoError(t, err)
		assert.Equal(t, "the-code", code)
	})

	t.Run("user denies consent", func(t *testing.T) {
		redirect := freeRedirect(t)
		a := NewBrowserAuthorizer(redirect, 5*time.Second, nil)
		a.Open = browser(t, func(state string) url.Values {
			return url.Values{"error": {"access_denied"}, "state": {state}}
		})

		authURL := "https://accounts.spotify.com/authorize?" + url.Values{"redirect_uri": {redirect}, "state": {"s"}}.Encode()
		_, err := a.Authorize(context.Background(), authURL)
		assert.ErrorIs(t, err, shared.ErrFlowCancelled)
	})

	t.Run("forged state", func(t *testing.T) {
		redirect := freeRedirect(t)
		a := NewBrowserAuthorizer(redirect, 5*time.Second, nil)
		a.Open = browser(t, func(string) url.Values {
			return url.Values{"code": {"c"}, "state": {"forged"}}
		})

		authURL := "https://accounts.spotify.com/authorize?" + url.Values{"redirect_uri": {redirect}, "state": {"real"}}.Encode()
		_, err := a.Authorize(context.Background(), authURL)
		assert.ErrorIs(t, err, shared.ErrStateMismatch)
	})

	t.Run("timeout", func(t *testing.T) {
		a := NewBrowserAuthorizer(freeRedirect(t), 50*time.Millisecond, nil)
		a.Open = func(string) error { return nil }

		_, err := a.Authorize(context.Background(), "https://accounts.spotify.com/authorize?state=s")
		assert.ErrorIs(t, err, shared.ErrFlowCancelled)
		assert.ErrorIs(t, err, shared.ErrTimeout)
	})

	t.Run("context cancelled", func(t *testing.T) {
		a := NewBrowserAuthorizer(freeRedirect(t), time.Minute, nil)
		ctx, cancel := context.WithCancel(context.Background())
		a.Open = func(string) error { cancel(); return nil }

		_, err := a.Authorize(ctx, "https://accounts.spotify.com/authorize?state=s")
		assert.ErrorIs(t, err, shared.ErrFlowCancelled)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("browser failure still waits for redirect", func(t *testing.T) {
		a := NewBrowserAuthorizer(freeRedirect(t), 50*time.Millisecond, nil)
		a.Open = func(string) error { return errors.New("no display") }

		_, err := a.Authorize(context.Background(), "https://accounts.spotify.com/authorize?state=s")
		assert.ErrorIs(t, err, shared.ErrTimeout)
	})

	t.Run("invalid redirect uri", func(t *testing.T) {
		a := NewBrowserAuthorizer("not a url", time.Second, nil)
		_, err := a.Authorize(context.Background(), "https://accounts.spotify.com/authorize")
		assert.ErrorIs(t, err, shared.ErrInvalidURL)
	})
}

type fakeAuthorizer struct {
	code    string
	err     error
	gotURL  string
	onStart func(m *Manager)
	m       *Manager
}

func (f *fakeAuthorizer) Authorize(_ context.Context, authURL string) (string, error) {
	f.gotURL = authURL
	if f.onStart != nil {
		f.onStart(f.m)
	}
	return f.code, f.err
}

func TestLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := newAccountsServer(t)
		st := store.NewMemoryStore()
		m := newManager(t, srv.URL, st)
		srv.respond(http.StatusOK, tokenBody("A1", "R1"))

		a := &fakeAuthorizer{code: "code-1", m: m, onStart: func(m *Manager) {
			assert.Equal(t, StateAuthorizing, m.State())
		}}
		require.NoError(t, Login(context.Background(), m, a))

		assert.Equal(t, StateAuthenticated, m.State())
		assert.Contains(t, a.gotURL, "/authorize?")
		assert.Equal(t, "code-1", srv.last(t).Form.Get("code"))

		u, err := url.Parse(a.gotURL)
		require.NoError(t, err)
		assert.NotEmpty(t, u.Query().Get("state"))
	})

	t.Run("cancelled flow", func(t *testing.T) {
		srv := newAccountsServer(t)
		m := newManager(t, srv.URL, store.NewMemoryStore())

		err := Login(context.Background(), m, &fakeAuthorizer{err: shared.ErrFlowCancelled})
		assert.ErrorIs(t, err, shared.ErrFlowCancelled)
		assert.Equal(t, StateUnauthenticated, m.State())
		assert.Zero(t, srv.count())
	})

	t.Run("missing code", func(t *testing.T) {
		srv := newAccountsServer(t)
		m := newManager(t, srv.URL, store.NewMemoryStore())

		err := Login(context.Background(), m, &fakeAuthorizer{err: shared.ErrMissingCode})
		assert.ErrorIs(t, err, shared.ErrMissingCode)
		assert.Equal(t, StateUnauthenticated, m.State())
	})

	t.Run("exchange failure", func(t *testing.T) {
		srv := newAccountsServer(t)
		m := newManager(t, srv.URL, store.NewMemoryStore())
		srv.respond(http.StatusBadRequest, `{"error":"invalid_grant"}`)

		err := Login(context.Background(), m, &fakeAuthorizer{code: "stale"})
		assert.ErrorIs(t, err, shared.ErrAuthFailed)
		assert.Equal(t, StateUnauthenticated, m.State())
	})
}
