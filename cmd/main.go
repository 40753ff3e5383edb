// Command urlguard runs the navigation guard (run), classifies single URLs
// (check) and prepares the database (migrate).
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"urlguard/internal/config"
	"urlguard/pkg/logger"
	"urlguard/pkg/storage/postgres"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func postgresOptions(cfg *config.Config) postgres.Options {
	db := cfg.Database

	return postgres.Options{
		Username:           db.Username,
		Password:           db.Password,
		Host:               db.Host,
		Port:               db.Port,
		Database:           db.DatabaseName,
		SslMode:            db.SslMode,
		MaxOpenConnections: db.MaxOpenConnections,
		MaxIdleConnections: db.MaxIdleConnections,
		ConnMaxLifetime:    db.ConnMaxLifetime,
		ConnMaxIdleTime:    db.ConnMaxIdleTime,
	}
}

// getPostgres connects to the configured database or exits. The returned
// func closes the pool.
func getPostgres(ctx context.Context, cfg *config.Config) (*postgres.PgSQL, func()) {
	pgsql, err := postgres.New(ctx, postgresOptions(cfg))
	if err != nil {
		logger.Fatal(ctx, "could not connect to postgres", zap.Error(err))
	}

	return pgsql, func() {
		logger.Info(ctx, "closing postgres pool")
		if err := pgsql.Close(); err != nil {
			logger.Warn(ctx, "could not close postgres pool", zap.Error(err))
		}
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "urlguard",
		Short: "Intercepts navigations and blocks dangerous URLs",
	}

	// Config and logging are needed before any command runs, so -c is read
	// ahead of cobra. The persistent flag only keeps cobra from rejecting it.
	rootCmd.PersistentFlags().StringP("config", "c", "config.yml", "config file path")

	flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flags.SetOutput(os.Stderr)
	configPath := flags.String("c", "config.yml", "The config file path")
	// cobra owns the remaining arguments; only -c is looked at here
	_ = flags.Parse(configArgs(os.Args[1:]))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("could not load config %q: %v", *configPath, err)
	}

	if err := logger.Setup(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatal("could not setup logger: ", err)
	}

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "panic in command", zap.Any("panic", p))
			_ = logger.Get(ctx).Sync()

			panic(p)
		}
	}()

	rootCmd.AddCommand(
		migrateCommand(cfg),
		runCommand(cfg),
		checkCommand(cfg),
	)

	err = rootCmd.Execute()
	_ = logger.Get(ctx).Sync()
	if err != nil {
		os.Exit(1) //nolint: gocritic
	}
}

// configArgs extracts the -c/--config flag from args so subcommand
// arguments (like the URL of check) do not stop flag parsing.
func configArgs(args []string) []string {
	for i, arg := range args {
		switch arg {
		case "-c", "--config", "-config":
			if i+1 < len(args) {
				return []string{"-c", args[i+1]}
			}
		}
		for _, prefix := range []string{"-c=", "--config=", "-config="} {
			if path, ok := strings.CutPrefix(arg, prefix); ok && path != "" {
				return []string{"-c", path}
			}
		}
	}

	return nil
}
