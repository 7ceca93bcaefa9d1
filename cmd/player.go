package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/floater/internal/formatter"
	"github.com/desertthunder/floater/internal/models"
	"github.com/desertthunder/floater/internal/services"
	"github.com/desertthunder/floater/internal/shared"
	"github.com/urfave/cli/v3"
)

// NowPlaying prints the current track in the requested format.
func (r *Runner) NowPlaying(ctx context.Context, cmd *cli.Command) error {
	format := formatter.Format(cmd.String("format"))
	if cmd.Bool("json") {
		format = formatter.FormatJSON
	}
	format, err := formatter.ParseFormat(string(format))
	if err != nil {
		return err
	}

	m, client, err := r.player(ctx)
	if err != nil {
		return err
	}

	snap, err := services.WithRefreshRetry(ctx, m, client.CurrentPlayback)
	if err != nil && !isNoData(err) {
		return err
	}

	var saved *bool
	if snap.Item != nil {
		ok, err := services.WithRefreshRetry(ctx, m, func(ctx context.Context) (bool, error) {
			return client.IsTrackSaved(ctx, snap.Item.ID)
		})
		if err != nil {
			r.logger.Warn("favorite lookup failed", "track", snap.Item.ID, "error", err)
		} else {
			saved = &ok
		}
	}

	data, err := formatter.Render(snap, saved, format, cmd.Bool("pretty"))
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if format == formatter.FormatJSON {
		return r.writePlain("\n")
	}
	return nil
}

// PlayerAction returns a command action that sends a to the active device.
func (r *Runner) PlayerAction(a models.PlayerAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		m, client, err := r.player(ctx)
		if err != nil {
			return err
		}

		err = services.CallWithRefreshRetry(ctx, m, func(ctx context.Context) error {
			return client.PerformPlayerAction(ctx, a)
		})
		if err != nil {
			return fmt.Errorf("%s failed: %w", a, err)
		}
		return r.writePlain("✓ %s\n", a)
	}
}

// currentTrack returns the --id flag, falling back to the playing track.
func (r *Runner) currentTrack(ctx context.Context, cmd *cli.Command, m services.Refresher, client services.Player) (string, error) {
	if id := cmd.String("id"); id != "" {
		return id, nil
	}

	snap, err := services.WithRefreshRetry(ctx, m, client.CurrentPlayback)
	if isNoData(err) || (err == nil && snap.Item == nil) {
		return "", shared.ErrNothingPlaying
	}
	if err != nil {
		return "", err
	}
	return snap.Item.ID, nil
}

// FavCheck reports whether a track is saved to the library.
func (r *Runner) FavCheck(ctx context.Context, cmd *cli.Command) error {
	m, client, err := r.player(ctx)
	if err != nil {
		return err
	}
	id, err := r.currentTrack(ctx, cmd, m, client)
	if err != nil {
		return err
	}

	saved, err := services.WithRefreshRetry(ctx, m, func(ctx context.Context) (bool, error) {
		return client.IsTrackSaved(ctx, id)
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"id": id, "saved": saved}, false)
	}
	if saved {
		return r.writePlain("♥ %s is saved\n", id)
	}
	return r.writePlain("♡ %s is not saved\n", id)
}

// FavAdd saves a track to the library.
func (r *Runner) FavAdd(ctx context.Context, cmd *cli.Command) error {
	return r.favorite(ctx, cmd, true)
}

// FavRemove removes a track from the library.
func (r *Runner) FavRemove(ctx context.Context, cmd *cli.Command) error {
	return r.favorite(ctx, cmd, false)
}

func (r *Runner) favorite(ctx context.Context, cmd *cli.Command, save bool) error {
	m, client, err := r.player(ctx)
	if err != nil {
		return err
	}
	id, err := r.currentTrack(ctx, cmd, m, client)
	if err != nil {
		return err
	}

	err = services.CallWithRefreshRetry(ctx, m, func(ctx context.Context) error {
		if save {
			return client.AddFavorite(ctx, id)
		}
		return client.RemoveFavorite(ctx, id)
	})
	if err != nil {
		return err
	}

	if save {
		return r.writePlain("✓ Saved %s\n", id)
	}
	return r.writePlain("✓ Removed %s\n", id)
}

// Artwork downloads the current track's album art to --output.
func (r *Runner) Artwork(ctx context.Context, cmd *cli.Command) error {
	m, client, err := r.player(ctx)
	if err != nil {
		return err
	}

	snap, err := services.WithRefreshRetry(ctx, m, client.CurrentPlayback)
	if isNoData(err) || (err == nil && snap.Item == nil) {
		return shared.ErrNothingPlaying
	}
	if err != nil {
		return err
	}

	imageURL := snap.Item.Album.Artwork()
	if imageURL == "" {
		return fmt.Errorf("%w: %s has no artwork", shared.ErrNoData, snap.Item.Name)
	}

	data, err := client.Artwork(ctx, imageURL)
	if err != nil {
		return fmt.Errorf("failed to download artwork: %w", err)
	}

	path, err := formatter.WriteArtwork(data, cmd.String("output"))
	if err != nil {
		return err
	}
	r.logger.Info("artwork saved", "path", path, "bytes", len(data))
	return r.writePlain("✓ Artwork saved to %s\n", path)
}
