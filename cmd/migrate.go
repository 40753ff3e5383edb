package main

import (
	"context"
	"database/sql"
	"fmt"
	"urlguard"
	"urlguard/internal/config"
	"urlguard/pkg/logger"

	"github.com/pressly/goose/v3"
	"github.com/riverqueue/river/riverdriver/riverdatabasesql"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateBlocks applies the embedded goose migrations.
func migrateBlocks(db *sql.DB) error {
	goose.SetBaseFS(urlguard.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("could not set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("could not apply goose migrations: %w", err)
	}

	return nil
}

// migrateQueue brings the River tables to the latest version.
func migrateQueue(ctx context.Context, db *sql.DB) error {
	migrator, err := rivermigrate.New(riverdatabasesql.New(db), nil)
	if err != nil {
		return fmt.Errorf("could not create river migrator: %w", err)
	}

	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("could not apply river migrations: %w", err)
	}
	for _, v := range res.Versions {
		logger.Info(ctx, "river migration applied", zap.Int("version", v.Version), zap.Duration("took", v.Duration))
	}

	return nil
}

// migrateCommand creates the blocks table and the job queue tables.
func migrateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrates the database to the latest version",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logger.Named(cmd.Context(), "migrate")
			if !cfg.Database.Enabled {
				return fmt.Errorf("database is disabled, nothing to migrate")
			}

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()
			db := strg.DB.(*sql.DB) //nolint: forcetypeassert

			if err := migrateBlocks(db); err != nil {
				return err
			}
			if err := migrateQueue(ctx, db); err != nil {
				return err
			}
			logger.Info(ctx, "database is up to date")

			return nil
		},
	}
}
