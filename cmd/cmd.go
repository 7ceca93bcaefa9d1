// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/floater/internal/models"
	"github.com/desertthunder/floater/internal/shared"
	"github.com/urfave/cli/v3"
)

func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
			Value: "info",
		},
		&cli.BoolFlag{
			Name:  "ephemeral",
			Usage: "Keep the refresh token in memory only",
		},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

func idFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "id",
		Usage: "Track ID (defaults to the playing track)",
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and initialize the credential store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "client-id",
				Usage:   "Spotify application client ID",
				Sources: cli.EnvVars(shared.EnvClientID),
			},
			&cli.StringFlag{
				Name:    "client-secret",
				Usage:   "Spotify application client secret",
				Sources: cli.EnvVars(shared.EnvClientSecret),
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Refresh token storage (keyring, file, sqlite)",
			},
		},
		Action: r.Setup,
	}
}

func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Authorize floater with your Spotify account",
		Action: r.Login,
	}
}

func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Forget the stored Spotify session",
		Action: r.Logout,
	}
}

func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show authentication state",
		Flags: append(outputFlags(), &cli.IntFlag{
			Name:  "events",
			Usage: "Number of recent auth events to show (sqlite backend)",
			Value: 5,
		}),
		Action: r.Status,
	}
}

func nowCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "now",
		Aliases: []string{"np"},
		Usage:   "Show the currently playing track",
		Flags: append(outputFlags(), &cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (text, markdown, json)",
			Value:   "text",
		}),
		Action: r.NowPlaying,
	}
}

func playCommand(r *Runner) *cli.Command {
	return &cli.Command{Name: "play", Usage: "Resume playback", Action: r.PlayerAction(models.ActionPlay)}
}

func pauseCommand(r *Runner) *cli.Command {
	return &cli.Command{Name: "pause", Usage: "Pause playback", Action: r.PlayerAction(models.ActionPause)}
}

func nextCommand(r *Runner) *cli.Command {
	return &cli.Command{Name: "next", Usage: "Skip to the next track", Action: r.PlayerAction(models.ActionNext)}
}

func previousCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "previous",
		Aliases: []string{"prev"},
		Usage:   "Skip to the previous track",
		Action:  r.PlayerAction(models.ActionPrevious),
	}
}

// favCommand manages the user's saved tracks
func favCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "fav",
		Usage: "Saved tracks operations",
		Commands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "Check whether a track is saved",
				Flags:  []cli.Flag{idFlag(), &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}},
				Action: r.FavCheck,
			},
			{
				Name:   "add",
				Usage:  "Save a track",
				Flags:  []cli.Flag{idFlag()},
				Action: r.FavAdd,
			},
			{
				Name:    "remove",
				Aliases: []string{"rm"},
				Usage:   "Remove a saved track",
				Flags:   []cli.Flag{idFlag()},
				Action:  r.FavRemove,
			},
		},
	}
}

func artCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "art",
		Usage: "Download the current album artwork",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file",
				Value:   "cover.jpg",
			},
		},
		Action: r.Artwork,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the floating player",
		Action: r.TUI,
	}
}
