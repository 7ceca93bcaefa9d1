package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/floater/internal/models"
)

var (
	_ list.Item = trackItem{}
)

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string       { return i.track.Name }
func (i trackItem) Description() string {
	desc := i.track.ArtistNames()
	if i.track.Album.Name != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album.Name)
	}
	return desc
}

// newHistoryList builds the list of tracks seen this session, most recent first.
func newHistoryList(tracks []models.Track, width, height int) list.Model {
	items := make([]list.Item, 0, len(tracks))
	for i := len(tracks) - 1; i >= 0; i-- {
		items = append(items, trackItem{track: tracks[i]})
	}
	l := list.New(items, list.NewDefaultDelegate(), max(width-4, 0), max(height-4, 0))
	l.Title = "Recently played"
	l.SetShowHelp(false)
	return l
}
