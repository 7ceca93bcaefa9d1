package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/floater/internal/auth"
	"github.com/desertthunder/floater/internal/services"
	"github.com/desertthunder/floater/internal/shared"
	"github.com/desertthunder/floater/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the floating player.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.UI.LogFile)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	m, err := r.session(ctx)
	if err != nil {
		return err
	}

	client := services.NewSpotifyClient(services.ClientOpts{
		BaseURL:           r.config.Endpoints.APIURL,
		HTTPClient:        r.apiHTTPClient(),
		Tokens:            m,
		RequestsPerSecond: r.config.API.RequestsPerSecond,
		Logger:            r.logger,
	})

	model := ui.NewModel(ctx, ui.Options{
		Player:  client,
		Session: m,
		Login: func(ctx context.Context) error {
			if err := auth.Login(ctx, m, r.authFlow()); err != nil {
				r.recordEvent("login_failed", err.Error())
				return err
			}
			r.recordEvent("login", m.Session().Scope)
			return nil
		},
		PollInterval: r.config.UI.PollInterval.Duration,
		ConfirmDelay: r.config.UI.ConfirmDelay.Duration,
		Logger:       r.logger,
	})

	p := tea.NewProgram(model, tea.WithContext(ctx))
	m.OnChange(func(s auth.Session) { p.Send(ui.SessionChanged(s.State)) })
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
