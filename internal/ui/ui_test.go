package ui

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/floater/internal/auth"
	"github.com/desertthunder/floater/internal/services"
	"github.com/desertthunder/floater/internal/shared"
	tu "github.com/desertthunder/floater/internal/testing"
)

type fakeSession struct {
	mu        sync.Mutex
	state     auth.State
	refresher *tu.MockRefresher
	logouts   int
}

func (f *fakeSession) State() auth.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSession) Refresh(ctx context.Context) error {
	return f.refresher.Refresh(ctx)
}

func (f *fakeSession) LogOut() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	f.state = auth.StateUnauthenticated
	return nil
}

type fixture struct {
	spotify   *tu.SpotifyServer
	tokens    *tu.StaticTokens
	refresher *tu.MockRefresher
	session   *fakeSession
	model     *Model
}

func newFixture(t *testing.T, state auth.State) *fixture {
	t.Helper()
	spotify := tu.NewSpotifyServer(t)
	spotify.SetArtwork([]byte("jpeg-bytes"))

	tokens := tu.NewStaticTokens("A1")
	refresher := &tu.MockRefresher{Tokens: tokens, Next: "A2"}
	session := &fakeSession{state: state, refresher: refresher}
	client := services.NewSpotifyClient(services.ClientOpts{BaseURL: spotify.URL, Tokens: tokens})

	m := NewModel(context.Background(), Options{
		Player:       client,
		Session:      session,
		PollInterval: time.Millisecond,
		ConfirmDelay: time.Millisecond,
	})
	return &fixture{spotify: spotify, tokens: tokens, refresher: refresher, session: session, model: m}
}

// settle runs cmd and feeds every resulting message back into the model until no work remains.
// Poll ticks are dropped so the loop terminates.
func settle(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			settle(t, m, c)
		}
	case Msg:
		if msg.kind == MsgTick {
			return
		}
		_, next := m.Update(msg)
		settle(t, m, next)
	}
}

func press(t *testing.T, m *Model, k string) {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	_, cmd := m.Update(msg)
	settle(t, m, cmd)
}

func TestNewModel(t *testing.T) {
	t.Run("starts on login view without a session", func(t *testing.T) {
		f := newFixture(t, auth.StateUnauthenticated)
		if f.model.view != LoginView {
			t.Errorf("expected LoginView, got %v", f.model.view)
		}
		if f.model.Init() != nil {
			t.Error("expected no initial command")
		}
		if !strings.Contains(f.model.View(), "Not connected") {
			t.Errorf("unexpected view: %s", f.model.View())
		}
	})

	t.Run("defaults", func(t *testing.T) {
		m := NewModel(context.Background(), Options{Session: &fakeSession{state: auth.StateAuthenticated}})
		if m.pollInterval != DefaultPollInterval || m.confirmDelay != DefaultConfirmDelay {
			t.Errorf("unexpected intervals %v %v", m.pollInterval, m.confirmDelay)
		}
		if m.view != PlayerView {
			t.Errorf("expected PlayerView, got %v", m.view)
		}
	})
}

func TestPolling(t *testing.T) {
	t.Run("restored session loads track and artwork", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		f.spotify.SetPlaying(f.spotify.NowPlaying("t1", "Song", "Artist", true))

		settle(t, f.model, f.model.Init())

		m := f.model
		if m.track == nil || m.track.ID != "t1" || !m.isPlaying {
			t.Fatalf("expected t1 playing, got %+v", m.track)
		}
		if string(m.artwork) != "jpeg-bytes" {
			t.Errorf("expected artwork, got %q", m.artwork)
		}
		if len(m.history) != 1 {
			t.Errorf("expected one history entry, got %d", len(m.history))
		}
		if !strings.Contains(m.View(), "artwork: 10 bytes") {
			t.Errorf("view missing artwork size: %s", m.View())
		}
	})

	t.Run("same track keeps artwork and re-checks favorite", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		f.spotify.SetPlaying(f.spotify.NowPlaying("t1", "Song", "Artist", true))
		settle(t, f.model, f.model.Init())

		f.spotify.SetArtwork([]byte("other"))
		client := services.NewSpotifyClient(services.ClientOpts{BaseURL: f.spotify.URL, Tokens: f.tokens})
		if err := client.AddFavorite(context.Background(), "t1"); err != nil {
			t.Fatal(err)
		}

		settle(t, f.model, f.model.fetchPlayback())

		if string(f.model.artwork) != "jpeg-bytes" {
			t.Errorf("artwork refetched for same track: %q", f.model.artwork)
		}
		if !f.model.saved {
			t.Error("expected favorite to be re-checked")
		}
		if len(f.model.history) != 1 {
			t.Errorf("expected one history entry, got %d", len(f.model.history))
		}
	})

	t.Run("track change", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		f.spotify.SetPlaying(f.spotify.NowPlaying("t1", "Song", "Artist", true))
		settle(t, f.model, f.model.Init())

		f.spotify.SetPlaying(f.spotify.NowPlaying("t2", "Other", "Artist", false))
		settle(t, f.model, f.model.fetchPlayback())

		if f.model.track.ID != "t2" || f.model.isPlaying {
			t.Errorf("expected t2 paused, got %+v %v", f.model.track, f.model.isPlaying)
		}
		if len(f.model.history) != 2 {
			t.Errorf("expected two history entries, got %d", len(f.model.history))
		}
	})

	t.Run("403 keeps the current track", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		f.spotify.SetPlaying(f.spotify.NowPlaying("t1", "Song", "Artist", true))
		settle(t, f.model, f.model.Init())

		f.spotify.Fail(http.MethodGet, "/v1/me/player/currently-playing", http.StatusForbidden)
		settle(t, f.model, f.model.fetchPlayback())

		if f.model.track == nil || f.model.track.ID != "t1" {
			t.Errorf("expected track kept, got %+v", f.model.track)
		}
		if f.model.status != "no active device" {
			t.Errorf("unexpected status %q", f.model.status)
		}
	})

	t.Run("other failures clear the track", func(t *testing.T) {
		for _, status := range []int{http.StatusInternalServerError, http.StatusTooManyRequests, http.StatusNotFound} {
			f := newFixture(t, auth.StateAuthenticated)
			f.spotify.SetPlaying(f.spotify.NowPlaying("t1", "Song", "Artist", true))
			settle(t, f.model, f.model.Init())

			f.spotify.Fail(http.MethodGet, "/v1/me/player/currently-playing", status)
			settle(t, f.model, f.model.fetchPlayback())

			if f.model.track != nil || f.model.artwork != nil {
				t.Errorf("%d: expected track cleared, got %+v", status, f.model.track)
			}
		}
	})

	t.Run("nothing playing clears the track", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		f.spotify.SetPlaying(f.spotify.NowPlaying("t1", "Song", "Artist", true))
		settle(t, f.model, f.model.Init())

		f.spotify.SetPlaying(nil)
		settle(t, f.model, f.model.fetchPlayback())

		if f.model.track != nil {
			t.Errorf("expected track cleared, got %+v", f.model.track)
		}
		if !strings.Contains(f.model.View(), "Nothing playing") {
			t.Errorf("unexpected view: %s", f.model.View())
		}
	})

	t.Run("401 refreshes once", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		f.spotify.RequireToken("A2")
		f.spotify.SetPlaying(f.spotify.NowPlaying("t1", "Song", "Artist", true))

		settle(t, f.model, f.model.fetchPlayback())

		if f.model.track == nil || f.model.track.ID != "t1" {
			t.Errorf("expected track after refresh, got %+v", f.model.track)
		}
		if f.refresher.Calls() != 1 {
			t.Errorf("expected one refresh, got %d", f.refresher.Calls())
		}
	})

	t.Run("failed refresh returns to login", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		f.spotify.RequireToken("A2")
		f.refresher.Err = shared.ErrRefreshFailed

		settle(t, f.model, f.model.fetchPlayback())

		if f.model.view != LoginView {
			t.Errorf("expected LoginView, got %v", f.model.view)
		}
		if !errors.Is(f.model.err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", f.model.err)
		}
	})

	t.Run("stale ticks are ignored", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		settle(t, f.model, f.model.Init())

		_, cmd := f.model.Update(tickMsg(f.model.gen - 1))
		if cmd != nil {
			t.Error("expected stale tick to be dropped")
		}
		_, cmd = f.model.Update(tickMsg(f.model.gen))
		if cmd == nil {
			t.Error("expected current tick to poll")
		}
	})
}

func TestControls(t *testing.T) {
	t.Run("space toggles and schedules a confirmatory fetch", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		f.spotify.SetPlaying(f.spotify.NowPlaying("t1", "Song", "Artist", false))
		settle(t, f.model, f.model.Init())
		before := f.spotify.Count(http.MethodGet, "/v1/me/player/currently-playing")

		press(t, f.model, " ")

		if n := f.spotify.Count(http.MethodPut, "/v1/me/player/play"); n != 1 {
			t.Errorf("expected one play request, got %d", n)
		}
		if n := f.spotify.Count(http.MethodGet, "/v1/me/player/currently-playing"); n != before+1 {
			t.Errorf("expected a confirmatory fetch, got %d requests", n-before)
		}
		if !f.model.isPlaying {
			t.Error("expected playing after confirmation")
		}

		press(t, f.model, " ")
		if n := f.spotify.Count(http.MethodPut, "/v1/me/player/pause"); n != 1 {
			t.Errorf("expected one pause request, got %d", n)
		}
	})

	t.Run("skip keys", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		press(t, f.model, "n")
		press(t, f.model, "p")

		if f.spotify.Count(http.MethodPost, "/v1/me/player/next") != 1 {
			t.Error("expected next request")
		}
		if f.spotify.Count(http.MethodPost, "/v1/me/player/previous") != 1 {
			t.Error("expected previous request")
		}
	})

	t.Run("failed action reports status", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		f.spotify.Fail(http.MethodPost, "/v1/me/player/next", http.StatusForbidden)

		press(t, f.model, "n")

		if f.model.status != "next failed" || f.model.err == nil {
			t.Errorf("unexpected status %q err %v", f.model.status, f.model.err)
		}
	})

	t.Run("favorite flips on success", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		f.spotify.SetPlaying(f.spotify.NowPlaying("t1", "Song", "Artist", true))
		settle(t, f.model, f.model.Init())

		press(t, f.model, "f")
		if !f.model.saved || !f.spotify.Saved("t1") {
			t.Errorf("expected saved, model=%v server=%v", f.model.saved, f.spotify.Saved("t1"))
		}

		press(t, f.model, "f")
		if f.model.saved || f.spotify.Saved("t1") {
			t.Errorf("expected removed, model=%v server=%v", f.model.saved, f.spotify.Saved("t1"))
		}
	})

	t.Run("favorite unchanged on failure", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		f.spotify.SetPlaying(f.spotify.NowPlaying("t1", "Song", "Artist", true))
		settle(t, f.model, f.model.Init())
		f.spotify.Fail(http.MethodPut, "/v1/me/tracks", http.StatusInternalServerError)

		press(t, f.model, "f")

		if f.model.saved {
			t.Error("favorite must not flip on failure")
		}
		if f.model.status != "favorite update failed" {
			t.Errorf("unexpected status %q", f.model.status)
		}
	})

	t.Run("favorite without a track is a no-op", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		press(t, f.model, "f")
		if len(f.spotify.Requests()) != 0 {
			t.Errorf("expected no requests, got %d", len(f.spotify.Requests()))
		}
	})

	t.Run("stale favorite results are ignored", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		f.spotify.SetPlaying(f.spotify.NowPlaying("t1", "Song", "Artist", true))
		settle(t, f.model, f.model.Init())

		f.model.Update(savedCheckedMsg("t0", true, nil))
		f.model.Update(favoriteToggledMsg("t0", true, nil))
		if f.model.saved {
			t.Error("result for another track changed the favorite flag")
		}
	})

	t.Run("artwork failure is ignored", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		f.spotify.SetArtwork(nil)
		f.spotify.SetPlaying(f.spotify.NowPlaying("t1", "Song", "Artist", true))

		settle(t, f.model, f.model.Init())

		if f.model.track == nil || f.model.artwork != nil {
			t.Errorf("expected track without artwork, got %+v %q", f.model.track, f.model.artwork)
		}
		if f.model.err != nil {
			t.Errorf("artwork failure surfaced: %v", f.model.err)
		}
	})

	t.Run("history view", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		f.spotify.SetPlaying(f.spotify.NowPlaying("t1", "Song", "Artist", true))
		settle(t, f.model, f.model.Init())

		press(t, f.model, "h")
		if f.model.view != HistoryView {
			t.Fatalf("expected HistoryView, got %v", f.model.view)
		}
		if len(f.model.historyList.Items()) != 1 {
			t.Errorf("expected one item, got %d", len(f.model.historyList.Items()))
		}

		press(t, f.model, "esc")
		if f.model.view != PlayerView {
			t.Errorf("expected PlayerView, got %v", f.model.view)
		}
	})

	t.Run("quit", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		_, cmd := f.model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestSession(t *testing.T) {
	t.Run("login starts polling", func(t *testing.T) {
		f := newFixture(t, auth.StateUnauthenticated)
		f.spotify.SetPlaying(f.spotify.NowPlaying("t1", "Song", "Artist", true))
		f.model.login = func(context.Context) error {
			f.session.mu.Lock()
			f.session.state = auth.StateAuthenticated
			f.session.mu.Unlock()
			return nil
		}

		press(t, f.model, "l")

		if f.model.view != PlayerView {
			t.Fatalf("expected PlayerView, got %v", f.model.view)
		}
		if f.model.track == nil || f.model.track.ID != "t1" {
			t.Errorf("expected track after login, got %+v", f.model.track)
		}
	})

	t.Run("cancelled login stays on login view", func(t *testing.T) {
		f := newFixture(t, auth.StateUnauthenticated)
		f.model.login = func(context.Context) error { return shared.ErrFlowCancelled }

		press(t, f.model, "l")

		if f.model.view != LoginView || f.model.status != "login cancelled" {
			t.Errorf("unexpected view %v status %q", f.model.view, f.model.status)
		}
		if f.model.busy {
			t.Error("expected busy cleared")
		}
	})

	t.Run("logout clears state", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		f.spotify.SetPlaying(f.spotify.NowPlaying("t1", "Song", "Artist", true))
		settle(t, f.model, f.model.Init())
		gen := f.model.gen

		press(t, f.model, "o")

		if f.session.logouts != 1 {
			t.Errorf("expected one logout, got %d", f.session.logouts)
		}
		if f.model.view != LoginView || f.model.track != nil || f.model.history != nil {
			t.Errorf("expected cleared login view, got %v %+v", f.model.view, f.model.track)
		}
		if _, cmd := f.model.Update(tickMsg(gen)); cmd != nil {
			t.Error("expected the old poll loop to stop")
		}

		f.model.Update(playbackFetchedMsg(gen, *f.spotify.NowPlaying("t1", "Song", "Artist", true), nil))
		if f.model.track != nil {
			t.Error("late poll result repopulated the track")
		}
	})

	t.Run("fetch from a previous session is dropped after re-login", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		f.spotify.SetPlaying(f.spotify.NowPlaying("old", "Old Song", "Artist", true))
		settle(t, f.model, f.model.Init())
		stale := f.model.gen

		press(t, f.model, "o")
		f.spotify.SetPlaying(f.spotify.NowPlaying("new", "New Song", "Artist", true))
		f.model.login = func(context.Context) error {
			f.session.mu.Lock()
			f.session.state = auth.StateAuthenticated
			f.session.mu.Unlock()
			return nil
		}
		press(t, f.model, "l")

		if f.model.track == nil || f.model.track.ID != "new" {
			t.Fatalf("expected the new session's track, got %+v", f.model.track)
		}

		f.model.Update(playbackFetchedMsg(stale, *f.spotify.NowPlaying("old", "Old Song", "Artist", true), nil))
		if f.model.track.ID != "new" {
			t.Errorf("stale fetch overwrote the track with %q", f.model.track.ID)
		}
	})

	t.Run("session dropped elsewhere returns to login", func(t *testing.T) {
		f := newFixture(t, auth.StateAuthenticated)
		f.spotify.SetPlaying(f.spotify.NowPlaying("t1", "Song", "Artist", true))
		settle(t, f.model, f.model.Init())

		f.model.Update(SessionChanged(auth.StateRefreshing))
		if f.model.view != PlayerView {
			t.Fatalf("expected PlayerView while refreshing, got %v", f.model.view)
		}

		f.model.Update(SessionChanged(auth.StateUnauthenticated))
		if f.model.view != LoginView || f.model.track != nil {
			t.Errorf("expected cleared login view, got %v %+v", f.model.view, f.model.track)
		}
	})

	t.Run("session changes during login are ignored", func(t *testing.T) {
		f := newFixture(t, auth.StateUnauthenticated)

		f.model.Update(SessionChanged(auth.StateUnauthenticated))
		if f.model.view != LoginView || f.model.status != "" {
			t.Errorf("unexpected view %v status %q", f.model.view, f.model.status)
		}
	})
}
