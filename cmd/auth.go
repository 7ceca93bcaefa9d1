package main

import (
	"context"
	"errors"
	"time"

	"github.com/desertthunder/floater/internal/auth"
	"github.com/desertthunder/floater/internal/shared"
	"github.com/urfave/cli/v3"
)

// Login runs the browser authorization code flow and stores the refresh token.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	m, err := r.tokenManager()
	if err != nil {
		return err
	}

	r.logger.Info("opening browser for Spotify consent")
	if err := auth.Login(ctx, m, r.authFlow()); err != nil {
		r.recordEvent("login_failed", err.Error())
		if errors.Is(err, shared.ErrFlowCancelled) {
			return r.writePlain("✗ Login cancelled\n")
		}
		return err
	}

	r.recordEvent("login", m.Session().Scope)
	return r.writePlain("✓ Logged in to Spotify\n")
}

// Logout clears the session and the stored refresh token.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	m, err := r.tokenManager()
	if err != nil {
		return err
	}

	if err := m.LogOut(); err != nil {
		return err
	}
	r.recordEvent("logout", "")
	return r.writePlain("✓ Logged out\n")
}

// statusReport is the JSON shape of `floater status`.
type statusReport struct {
	State     auth.State    `json:"state"`
	Backend   string        `json:"backend"`
	Token     string        `json:"access_token,omitempty"`
	Scope     string        `json:"scope,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
	Events    []eventReport `json:"events,omitempty"`
}

type eventReport struct {
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Status restores the session silently and reports the resulting state.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	m, err := r.session(ctx)
	if err != nil {
		return err
	}

	s := m.Session()
	report := statusReport{
		State:   s.State,
		Backend: r.config.Storage.Backend,
		Scope:   s.Scope,
	}
	if s.AccessToken != "" {
		report.Token = shared.Redact(s.AccessToken)
	}
	if !s.ExpiresAt.IsZero() {
		report.ExpiresAt = &s.ExpiresAt
	}

	if events, ok := r.store.(eventLog); ok {
		recent, err := events.RecentEvents(cmd.Int("events"))
		if err != nil {
			r.logger.Warn("failed to read auth events", "error", err)
		}
		for _, e := range recent {
			report.Events = append(report.Events, eventReport{Kind: e.Kind, Detail: e.Detail, CreatedAt: e.CreatedAt})
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, cmd.Bool("pretty"))
	}

	if s.State == auth.StateAuthenticated {
		r.writePlain("Authentication: ✓ Authenticated\n")
	} else {
		r.writePlain("Authentication: ✗ Not authenticated\n")
	}
	r.writePlain("State: %s\n", report.State)
	r.writePlain("Storage: %s\n", report.Backend)
	if report.Token != "" {
		r.writePlain("Access token: %s\n", report.Token)
	}
	if report.ExpiresAt != nil {
		r.writePlain("Expires: %s\n", report.ExpiresAt.Local().Format(time.RFC3339))
	}
	for _, e := range report.Events {
		r.writePlain("  %s  %s %s\n", e.CreatedAt.Local().Format(time.DateTime), e.Kind, e.Detail)
	}
	return nil
}
