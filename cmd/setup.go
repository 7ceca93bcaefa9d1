package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/floater/internal/shared"
	"github.com/desertthunder/floater/internal/store"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the embedded template and prepares the selected storage backend.
//
// --client-id and --client-secret are written into the new file. Migrations only run for the sqlite backend.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if configPath == "" {
		configPath = "config.toml"
	}

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("using existing config", "path", configPath)
		if config, err = shared.LoadConfig(configPath); err != nil {
			return err
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		if config, err = shared.LoadConfig(configPath); err != nil {
			return err
		}
	}

	changed := false
	if id := cmd.String("client-id"); id != "" {
		config.Credentials.Spotify.ClientID = id
		changed = true
	}
	if secret := cmd.String("client-secret"); secret != "" {
		config.Credentials.Spotify.ClientSecret = secret
		changed = true
	}
	if backend := cmd.String("backend"); backend != "" {
		config.Storage.Backend = strings.ToLower(backend)
		changed = true
	}
	if changed {
		if err := shared.SaveConfig(configPath, config); err != nil {
			return err
		}
		r.logger.Info("config updated", "path", configPath)
	}
	r.config = config
	r.configPath = configPath

	if strings.EqualFold(config.Storage.Backend, store.BackendSQLite) {
		r.logger.Info("initializing database", "path", config.Database.Path)
		db, err := r.database()
		if err != nil {
			return err
		}
		version, err := shared.SchemaVersion(db)
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		r.logger.Infof("setup complete for database: %v (schema %d)", config.Database.Path, version)
	}

	r.writePlain("✓ Configuration ready at %s\n", configPath)
	if err := config.Credentials.Spotify.Validate(); err != nil {
		r.writePlain("Next: set client_id and client_secret (or %s / %s)\n", shared.EnvClientID, shared.EnvClientSecret)
		return nil
	}
	return r.writePlain("Next: run 'floater login'\n")
}
