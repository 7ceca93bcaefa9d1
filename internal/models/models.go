package models

import (
	"strings"
	"time"
)

// PlaybackSnapshot is the body of GET /v1/me/player/currently-playing.
//
// Item is nil when playback is paused on an ad, a local file or nothing at all.
type PlaybackSnapshot struct {
	Item       *Track `json:"item"`
	IsPlaying  bool   `json:"is_playing"`
	ProgressMs int    `json:"progress_ms,omitempty"`
}

// Track represents a single track.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Album      Album    `json:"album"`
	Artists    []Artist `json:"artists"`
	DurationMs int      `json:"duration_ms,omitempty"`
	URI        string   `json:"uri,omitempty"`
}

// ArtistNames joins the artist names with ", ".
func (t Track) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// Duration returns the track length.
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMs) * time.Millisecond
}

type Album struct {
	Name   string  `json:"name,omitempty"`
	Images []Image `json:"images"`
}

// Artwork returns the URL of the first (largest) image, or "" when the album has none.
func (a Album) Artwork() string {
	if len(a.Images) == 0 {
		return ""
	}
	return a.Images[0].URL
}

type Artist struct {
	Name string `json:"name"`
}

type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
}

// TokenResponse is the accounts service token payload. RefreshToken is only present on
// exchange and on refreshes where the server rotates it.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}
