package ui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/floater/internal/auth"
	"github.com/desertthunder/floater/internal/formatter"
	"github.com/desertthunder/floater/internal/models"
	"github.com/desertthunder/floater/internal/services"
	"github.com/desertthunder/floater/internal/shared"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultConfirmDelay = 300 * time.Millisecond
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	PlayerView
	HistoryView
)

// Session is the part of the token manager the player depends on.
type Session interface {
	State() auth.State
	Refresh(ctx context.Context) error
	LogOut() error
}

// Options configures a [Model].
type Options struct {
	Player  services.Player
	Session Session
	// Login runs the interactive authorization flow.
	Login        func(ctx context.Context) error
	PollInterval time.Duration
	ConfirmDelay time.Duration
	Logger       *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	player  services.Player
	session Session
	login   func(ctx context.Context) error
	logger  *log.Logger

	pollInterval time.Duration
	confirmDelay time.Duration
	// gen invalidates ticks from a previous poll loop after logout or re-login.
	gen int

	track     *models.Track
	isPlaying bool
	saved     bool
	artwork   []byte
	history   []models.Track
	busy      bool
	status    string
	err       error

	historyList list.Model
	width       int
	height      int
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	m := &Model{
		ctx:          ctx,
		view:         LoginView,
		player:       opts.Player,
		session:      opts.Session,
		login:        opts.Login,
		logger:       opts.Logger,
		pollInterval: opts.PollInterval,
		confirmDelay: opts.ConfirmDelay,
		help:         help.New(),
		keys:         newKeyMap(),
	}
	if m.pollInterval <= 0 {
		m.pollInterval = DefaultPollInterval
	}
	if m.confirmDelay <= 0 {
		m.confirmDelay = DefaultConfirmDelay
	}
	if m.logger == nil {
		m.logger = shared.NopLogger()
	}
	m.logger = m.logger.With("component", "ui")
	if m.session.State() == auth.StateAuthenticated {
		m.view = PlayerView
	}
	return m
}

// Init starts polling when a session was restored, otherwise it waits on the login view.
func (m *Model) Init() tea.Cmd {
	if m.view != PlayerView {
		return nil
	}
	return m.startPolling()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if m.view == HistoryView {
			m.historyList.SetSize(max(msg.Width-4, 0), max(msg.Height-4, 0))
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		switch m.view {
		case LoginView:
			return m.handleLoginKeys(msg)
		case PlayerView:
			return m.handlePlayerKeys(msg)
		case HistoryView:
			return m.handleHistoryKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == HistoryView {
		var cmd tea.Cmd
		m.historyList, cmd = m.historyList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgTick:
		if msg.data.(int) != m.gen {
			return m, nil
		}
		return m, tea.Batch(m.fetchPlayback(), m.scheduleTick())

	case MsgConfirm:
		if msg.data.(int) != m.gen {
			return m, nil
		}
		return m, m.fetchPlayback()

	case MsgPlaybackFetched:
		r := msg.data.(playbackResult)
		if r.gen != m.gen {
			return m, nil
		}
		return m, m.applyPlayback(r.snap, r.err)

	case MsgSavedChecked:
		r := msg.data.(savedResult)
		if r.err != nil {
			m.logger.Debug("favorite check failed", "track", r.trackID, "error", r.err)
			return m, nil
		}
		if m.track != nil && m.track.ID == r.trackID {
			m.saved = r.saved
		}
		return m, nil

	case MsgActionDone:
		r := msg.data.(actionResult)
		if r.err != nil {
			m.status = fmt.Sprintf("%s failed", r.action)
			m.err = r.err
			m.logger.Warn("player action failed", "action", r.action, "error", r.err)
			m.requireLogin(r.err)
			return m, nil
		}
		m.status = ""
		m.err = nil
		return m, m.scheduleConfirm()

	case MsgFavoriteToggled:
		r := msg.data.(savedResult)
		if r.err != nil {
			m.status = "favorite update failed"
			m.err = r.err
			m.logger.Warn("favorite toggle failed", "track", r.trackID, "error", r.err)
			m.requireLogin(r.err)
			return m, nil
		}
		if m.track != nil && m.track.ID == r.trackID {
			m.saved = r.saved
		}
		m.status = ""
		m.err = nil
		return m, nil

	case MsgArtworkFetched:
		r := msg.data.(artworkResult)
		if r.err != nil {
			m.logger.Debug("artwork unavailable", "track", r.trackID, "error", r.err)
			return m, nil
		}
		if m.track != nil && m.track.ID == r.trackID {
			m.artwork = r.data
		}
		return m, nil

	case MsgLoginDone:
		m.busy = false
		if err, _ := msg.data.(error); err != nil {
			m.err = err
			if errors.Is(err, shared.ErrFlowCancelled) {
				m.status = "login cancelled"
			} else {
				m.status = "login failed"
			}
			return m, nil
		}
		m.err = nil
		m.status = ""
		m.view = PlayerView
		return m, m.startPolling()

	case MsgLogoutDone:
		if err, _ := msg.data.(error); err != nil {
			m.logger.Warn("logout did not clear stored credentials", "error", err)
		}
		m.signedOut("logged out")
		return m, nil

	case MsgSessionChanged:
		if msg.data.(auth.State) == auth.StateUnauthenticated && m.view != LoginView {
			m.signedOut("session expired, log in again")
		}
		return m, nil
	}
	return m, nil
}

// applyPlayback reconciles a poll result with the displayed track.
func (m *Model) applyPlayback(snap models.PlaybackSnapshot, err error) tea.Cmd {
	if m.view == LoginView {
		return nil
	}
	if err != nil {
		if code, ok := shared.StatusCode(err); ok && code == http.StatusForbidden {
			m.status = "no active device"
			return nil
		}
		if m.requireLogin(err) {
			return nil
		}
		if !errors.Is(err, shared.ErrNoData) {
			m.logger.Warn("playback poll failed", "error", err)
		}
		m.clearTrack()
		return nil
	}

	m.status = ""
	m.err = nil
	m.isPlaying = snap.IsPlaying
	if snap.Item == nil {
		m.clearTrack()
		return nil
	}

	var cmds []tea.Cmd
	if m.track == nil || m.track.ID != snap.Item.ID {
		track := *snap.Item
		m.track = &track
		m.saved = false
		m.artwork = nil
		m.history = append(m.history, track)
		cmds = append(cmds, m.fetchArtwork(track))
	}
	cmds = append(cmds, m.checkSaved(m.track.ID))
	return tea.Batch(cmds...)
}

// requireLogin returns to the login view when err means the session is gone.
func (m *Model) requireLogin(err error) bool {
	if !errors.Is(err, shared.ErrNotAuthenticated) {
		return false
	}
	m.signedOut("session expired, log in again")
	m.err = err
	return true
}

func (m *Model) signedOut(status string) {
	m.gen++
	m.clearTrack()
	m.history = nil
	m.view = LoginView
	m.status = status
}

func (m *Model) clearTrack() {
	m.track = nil
	m.isPlaying = false
	m.saved = false
	m.artwork = nil
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.login) && !m.busy && m.login != nil {
		m.busy = true
		m.status = "waiting for browser consent"
		login, ctx := m.login, m.ctx
		return m, func() tea.Msg { return loginDoneMsg(login(ctx)) }
	}
	return m, nil
}

func (m *Model) handlePlayerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.toggle):
		return m, m.perform(models.Toggle(m.isPlaying))
	case key.Matches(msg, m.keys.next):
		return m, m.perform(models.ActionNext)
	case key.Matches(msg, m.keys.previous):
		return m, m.perform(models.ActionPrevious)
	case key.Matches(msg, m.keys.favorite):
		return m, m.toggleFavorite()
	case key.Matches(msg, m.keys.history):
		m.historyList = newHistoryList(m.history, m.width, m.height)
		m.view = HistoryView
		return m, nil
	case key.Matches(msg, m.keys.logout):
		session := m.session
		return m, func() tea.Msg { return logoutDoneMsg(session.LogOut()) }
	}
	return m, nil
}

func (m *Model) handleHistoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.back) && m.historyList.FilterState() != list.Filtering {
		m.view = PlayerView
		return m, nil
	}
	var cmd tea.Cmd
	m.historyList, cmd = m.historyList.Update(msg)
	return m, cmd
}

func (m *Model) startPolling() tea.Cmd {
	m.gen++
	return tea.Batch(m.fetchPlayback(), m.scheduleTick())
}

func (m *Model) scheduleTick() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.pollInterval, func(time.Time) tea.Msg { return tickMsg(gen) })
}

func (m *Model) scheduleConfirm() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.confirmDelay, func(time.Time) tea.Msg { return confirmMsg(gen) })
}

func (m *Model) fetchPlayback() tea.Cmd {
	ctx, player, session, gen := m.ctx, m.player, m.session, m.gen
	return func() tea.Msg {
		snap, err := services.WithRefreshRetry(ctx, session, player.CurrentPlayback)
		return playbackFetchedMsg(gen, snap, err)
	}
}

func (m *Model) checkSaved(trackID string) tea.Cmd {
	ctx, player, session := m.ctx, m.player, m.session
	return func() tea.Msg {
		saved, err := services.WithRefreshRetry(ctx, session, func(ctx context.Context) (bool, error) {
			return player.IsTrackSaved(ctx, trackID)
		})
		return savedCheckedMsg(trackID, saved, err)
	}
}

func (m *Model) fetchArtwork(track models.Track) tea.Cmd {
	imageURL := track.Album.Artwork()
	if imageURL == "" {
		return nil
	}
	ctx, player := m.ctx, m.player
	return func() tea.Msg {
		data, err := player.Artwork(ctx, imageURL)
		return artworkFetchedMsg(track.ID, data, err)
	}
}

func (m *Model) perform(action models.PlayerAction) tea.Cmd {
	ctx, player, session := m.ctx, m.player, m.session
	return func() tea.Msg {
		err := services.CallWithRefreshRetry(ctx, session, func(ctx context.Context) error {
			return player.PerformPlayerAction(ctx, action)
		})
		return actionDoneMsg(action, err)
	}
}

func (m *Model) toggleFavorite() tea.Cmd {
	if m.track == nil {
		return nil
	}
	ctx, player, session := m.ctx, m.player, m.session
	trackID, want := m.track.ID, !m.saved
	return func() tea.Msg {
		err := services.CallWithRefreshRetry(ctx, session, func(ctx context.Context) error {
			if want {
				return player.AddFavorite(ctx, trackID)
			}
			return player.RemoveFavorite(ctx, trackID)
		})
		return favoriteToggledMsg(trackID, want, err)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case LoginView:
		return m.renderLogin()
	case PlayerView:
		return m.renderPlayer()
	case HistoryView:
		return m.historyList.View() + "\n" + styles.help.Render("esc back • q quit")
	default:
		return ""
	}
}

func (m *Model) renderLogin() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("floater"))
	b.WriteString("\n")
	b.WriteString("Not connected to Spotify.\n\n")
	if m.status != "" {
		b.WriteString(m.renderStatus())
		b.WriteString("\n\n")
	}
	b.WriteString(m.help.View(loginKeys{m.keys}))
	return styles.frame.Render(b.String())
}

func (m *Model) renderPlayer() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("floater"))
	b.WriteString("\n")

	if m.track == nil {
		b.WriteString(styles.help.Render("Nothing playing"))
		b.WriteString("\n")
	} else {
		icon := "⏸"
		if m.isPlaying {
			icon = "▶"
		}
		heart := "♡"
		if m.saved {
			heart = styles.ok.Render("♥")
		}
		fmt.Fprintf(&b, "%s %s %s\n", icon, styles.track.Render(m.track.Name), heart)
		b.WriteString(m.track.ArtistNames())
		b.WriteString("\n")
		if m.track.Album.Name != "" {
			b.WriteString(styles.help.Render(m.track.Album.Name))
			b.WriteString("\n")
		}
		if m.track.DurationMs > 0 {
			b.WriteString(formatter.FormatDuration(m.track.Duration()))
			b.WriteString("\n")
		}
		if len(m.artwork) > 0 {
			b.WriteString(styles.help.Render(fmt.Sprintf("artwork: %d bytes", len(m.artwork))))
			b.WriteString("\n")
		}
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.renderStatus())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return styles.frame.Render(b.String())
}

func (m *Model) renderStatus() string {
	if m.err != nil {
		return styles.err.Render(m.status)
	}
	return styles.warn.Render(m.status)
}
