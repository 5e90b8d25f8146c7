package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/praghad/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase creates the config file when missing, then initializes the database and runs migrations.
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
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if config.Library.MusicDir != "" {
		if err := os.MkdirAll(config.Library.MusicDir, 0755); err != nil {
			r.logger.Warn("failed to create music directory", "path", config.Library.MusicDir, "error", err)
		}
	}

	r.config = config
	r.logger.Infof("setup complete for database: %v", config.Database.Path)

	r.writePlain("%s\n", r.styles.OK("✓ Database ready"))
	r.writePlainln("Next steps:")
	r.writePlain("1. Add a user: praghad user add <name> -c %s\n", configPath)
	r.writePlain("2. Register tracks: praghad track add <file> -c %s\n", configPath)
	r.writePlain("3. Start the server: praghad serve -c %s\n", configPath)
	return nil
}
