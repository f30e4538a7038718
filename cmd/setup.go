package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tidalx/internal/repositories"
	"github.com/desertthunder/tidalx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := r.config.Database.Path
	r.logger.Info("initializing database", "path", path)

	db, err := shared.NewDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back latest migration")
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
	} else {
		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	status, err := shared.Status(db)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	r.writePlainHeader("Database")
	r.writePlain("Path:     %s\n", path)
	r.writePlain("Version:  %d of %d\n", status.Current, status.Latest)
	if len(status.Pending) > 0 {
		r.writePlain("Pending:  %v\n", status.Pending)
		return nil
	}

	count, err := repositories.NewAlbumRepository(db).Count(ctx)
	if err != nil {
		return err
	}
	r.writePlain("Albums:   %d\n", count)
	return nil
}

// SetupConfig writes the embedded example configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		return fmt.Errorf("%w: --config path is empty", shared.ErrMissingArgument)
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Wrote %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.tidal.client_id and client_secret (or TIDAL_CLIENT_ID / TIDAL_CLIENT_SECRET)\n")
	r.writePlain("2. Run 'tidalx setup database'\n")
	r.writePlain("3. Run 'tidalx auth' to connect your Tidal account\n")
	return nil
}

// SetupEnv prints every environment variable that overrides a config value.
func (r *Runner) SetupEnv(ctx context.Context, cmd *cli.Command) error {
	help, err := shared.EnvHelp()
	if err != nil {
		return fmt.Errorf("failed to describe environment: %w", err)
	}
	return r.writePlain("%s\n", help)
}
