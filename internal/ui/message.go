package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/floater/internal/auth"
	"github.com/desertthunder/floater/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTick MsgKind = iota
	MsgConfirm
	MsgPlaybackFetched
	MsgSavedChecked
	MsgActionDone
	MsgFavoriteToggled
	MsgArtworkFetched
	MsgLoginDone
	MsgLogoutDone
	MsgSessionChanged
)

type playbackResult struct {
	gen  int
	snap models.PlaybackSnapshot
	err  error
}

type savedResult struct {
	trackID string
	saved   bool
	err     error
}

type actionResult struct {
	action models.PlayerAction
	err    error
}

type artworkResult struct {
	trackID string
	data    []byte
	err     error
}

// tickMsg is the constructor for [MsgTick]. gen identifies the poll loop that scheduled it.
func tickMsg(gen int) Msg {
	return Msg{kind: MsgTick, data: gen}
}

// confirmMsg is the constructor for [MsgConfirm]
func confirmMsg(gen int) Msg {
	return Msg{kind: MsgConfirm, data: gen}
}

// playbackFetchedMsg is the constructor for [MsgPlaybackFetched]. gen is the poll loop that issued the fetch.
func playbackFetchedMsg(gen int, snap models.PlaybackSnapshot, err error) Msg {
	return Msg{kind: MsgPlaybackFetched, data: playbackResult{gen, snap, err}}
}

// savedCheckedMsg is the constructor for [MsgSavedChecked]
func savedCheckedMsg(trackID string, saved bool, err error) Msg {
	return Msg{kind: MsgSavedChecked, data: savedResult{trackID, saved, err}}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(action models.PlayerAction, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionResult{action, err}}
}

// favoriteToggledMsg is the constructor for [MsgFavoriteToggled]. saved is the requested state.
func favoriteToggledMsg(trackID string, saved bool, err error) Msg {
	return Msg{kind: MsgFavoriteToggled, data: savedResult{trackID, saved, err}}
}

// artworkFetchedMsg is the constructor for [MsgArtworkFetched]
func artworkFetchedMsg(trackID string, data []byte, err error) Msg {
	return Msg{kind: MsgArtworkFetched, data: artworkResult{trackID, data, err}}
}

// loginDoneMsg is the constructor for [MsgLoginDone]
func loginDoneMsg(err error) Msg {
	return Msg{kind: MsgLoginDone, data: err}
}

// logoutDoneMsg is the constructor for [MsgLogoutDone]
func logoutDoneMsg(err error) Msg {
	return Msg{kind: MsgLogoutDone, data: err}
}

// SessionChanged reports a token manager transition to a running program via [tea.Program.Send].
func SessionChanged(state auth.State) Msg {
	return Msg{kind: MsgSessionChanged, data: state}
}
