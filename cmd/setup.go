package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/loopauth/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example configuration file.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("✓ Config written to %s\n", configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set oauth.client_id, oauth.auth_url and oauth.token_url\n")
	r.writePlain("2. Register %s as a redirect URI with your provider\n", r.config.OAuth.RedirectURI())
	return nil
}

// SetupDatabase initializes the database and runs migrations, or rolls back the latest one.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		version, err := shared.RollbackMigration(db)
		if err != nil {
			return err
		}
		r.logger.Info("rolled back migration", "version", version)
		return r.writePlain("✓ Rolled back migration %04d\n", version)
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	versions, err := shared.AppliedVersions(db)
	if err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s (%d migrations applied)\n", r.config.Database.Path, len(versions))
}
