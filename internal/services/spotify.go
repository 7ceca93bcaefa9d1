package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/floater/internal/models"
	"github.com/desertthunder/floater/internal/shared"
)

const (
	currentlyPlayingPath = "/v1/me/player/currently-playing"
	savedTracksPath      = "/v1/me/tracks"
	containsPath         = "/v1/me/tracks/contains"
)

func (c *SpotifyClient) CurrentPlayback(ctx context.Context) (models.PlaybackSnapshot, error) {
	return request[models.PlaybackSnapshot](ctx, c, http.MethodGet, currentlyPlayingPath)
}

func (c *SpotifyClient) PerformPlayerAction(ctx context.Context, action models.PlayerAction) error {
	if !action.Valid() {
		return fmt.Errorf("%w: player action %q", shared.ErrInvalidArgument, action)
	}
	return c.call(ctx, action.Method(), action.Path())
}

// IsTrackSaved takes the first element of the contains response; an empty array means not saved.
func (c *SpotifyClient) IsTrackSaved(ctx context.Context, trackID string) (bool, error) {
	if trackID == "" {
		return false, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	saved, err := request[[]bool](ctx, c, http.MethodGet, containsPath+"?ids="+url.QueryEscape(trackID))
	if err != nil {
		return false, err
	}
	if len(saved) == 0 {
		return false, nil
	}
	return saved[0], nil
}

func (c *SpotifyClient) AddFavorite(ctx context.Context, trackID string) error {
	if trackID == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	return c.call(ctx, http.MethodPut, savedTracksPath+"?ids="+url.QueryEscape(trackID))
}

func (c *SpotifyClient) RemoveFavorite(ctx context.Context, trackID string) error {
	if trackID == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	return c.call(ctx, http.MethodDelete, savedTracksPath+"?ids="+url.QueryEscape(trackID))
}

// Artwork fetches an image from the CDN without the bearer token.
func (c *SpotifyClient) Artwork(ctx context.Context, imageURL string) ([]byte, error) {
	u, err := url.Parse(imageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: artwork %q", shared.ErrInvalidURL, imageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidURL, err)
	}

	data, err := c.send(req, u.Path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: artwork %s", shared.ErrNoData, u.Path)
	}
	return data, nil
}
