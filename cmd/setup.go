package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/spotlink/internal/repositories"
	"github.com/desertthunder/spotlink/internal/shared"
	"github.com/desertthunder/spotlink/internal/ui"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded example configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", configPath)

	r.writePlain("%s %s\n", ui.Styles().OK("✓"), "Configuration written to "+configPath)
	r.writePlain("%s\n", ui.Styles().Help("Set credentials.spotify and session.secret, or export SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET and SESSION_SECRET."))
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
		}
		config = shared.DefaultConfig()
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return r.writePlain("%s Database ready at %s\n", ui.Styles().OK("✓"), config.Database.Path)
}

// PurgeSessions removes expired values from the sqlite session backend.
func (r *Runner) PurgeSessions(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	removed, err := repositories.NewSessionRepository(db).PurgeExpired(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("purged expired session values", "count", removed, "path", config.Database.Path)

	if cmd.Bool("json") {
		return r.writeJSON(map[string]int64{"purged": removed}, false)
	}
	return r.writePlain("Purged %d expired session values\n", removed)
}
