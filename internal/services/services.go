package services

import (
	"context"

	"github.com/desertthunder/floater/internal/models"
)

// TokenSource supplies the current bearer token. The client never mutates it.
type TokenSource interface {
	AccessToken() (string, bool)
}

// Refresher obtains a new access token.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Player is the playback and library surface of the Web API.
type Player interface {
	// CurrentPlayback returns the currently-playing snapshot. A 204 yields [shared.ErrNoData].
	CurrentPlayback(ctx context.Context) (models.PlaybackSnapshot, error)

	// PerformPlayerAction sends a transport control to the active device.
	PerformPlayerAction(ctx context.Context, action models.PlayerAction) error

	// IsTrackSaved reports whether the track is in the user's library.
	IsTrackSaved(ctx context.Context, trackID string) (bool, error)

	AddFavorite(ctx context.Context, trackID string) error
	RemoveFavorite(ctx context.Context, trackID string) error

	// Artwork downloads album art. It is unauthenticated and best effort.
	Artwork(ctx context.Context, imageURL string) ([]byte, error)
}
