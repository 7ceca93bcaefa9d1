package models

import (
	"fmt"
	"net/http"
)

// PlayerAction is a transport control sent to the active device.
type PlayerAction string

const (
	ActionPlay     PlayerAction = "play"
	ActionPause    PlayerAction = "pause"
	ActionNext     PlayerAction = "next"
	ActionPrevious PlayerAction = "previous"
)

// Method returns PUT for play and pause and POST for skips.
func (a PlayerAction) Method() string {
	switch a {
	case ActionPlay, ActionPause:
		return http.MethodPut
	default:
		return http.MethodPost
	}
}

// Path returns the player endpoint for the action.
func (a PlayerAction) Path() string {
	return "/v1/me/player/" + string(a)
}

func (a PlayerAction) Valid() bool {
	switch a {
	case ActionPlay, ActionPause, ActionNext, ActionPrevious:
		return true
	}
	return false
}

// ParsePlayerAction converts a command name into a [PlayerAction].
func ParsePlayerAction(s string) (PlayerAction, error) {
	a := PlayerAction(s)
	if !a.Valid() {
		return "", fmt.Errorf("unknown player action %q", s)
	}
	return a, nil
}

// Toggle returns the action that flips the current playing state.
func Toggle(isPlaying bool) PlayerAction {
	if isPlaying {
		return ActionPause
	}
	return ActionPlay
}
