package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"

	"red-herring-service/internal/config"
	"red-herring-service/internal/infra/postgres"
	pgmigrations "red-herring-service/internal/infra/postgres/migrations"
	"red-herring-service/internal/logging"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			setupLogging(cfg, opts)
			return runMigrationsWithConfig(cmd.Context(), cfg)
		},
	}
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	db := postgres.OpenBun(cfg.Postgres.URL)
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if group.IsZero() {
		log.Info().Msg("no new migrations")
		return nil
	}
	log.Info().Str("group", group.String()).Msg("migrations applied")
	return nil
}

func setupLogging(cfg config.Config, opts *Options) {
	level := cfg.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logging.Setup(level, cfg.Log.Pretty)
}
