package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"hunter-web/internal/config"
	"hunter-web/internal/logging"
	"hunter-web/internal/repository/sqlstore"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Manage the hunter-web database schema",
	Long:          "Apply, roll back and inspect the embedded schema migrations against the configured database",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *sqlstore.DB) error {
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			return printVersion(ctx, cmd, db)
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *sqlstore.DB) error {
			if err := db.MigrateDown(ctx); err != nil {
				return err
			}
			return printVersion(ctx, cmd, db)
		})
	},
}

var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"status"},
	Short:   "Print the current schema version",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *sqlstore.DB) error {
			return printVersion(ctx, cmd, db)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to log.level")
	rootCmd.AddCommand(upCmd, downCmd, versionCmd)
}

// withDB opens the configured database, routes migration logs through
// logrus and runs fn.
func withDB(parent context.Context, fn func(context.Context, *sqlstore.DB) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logging.New(logging.Options{Level: level, File: cfg.Log.File})
	if err != nil {
		return err
	}

	db, err := sqlstore.Open(cfg.Database.Driver, cfg.DataSource())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	sqlstore.SetMigrationLogger(logger.WithFields(logrus.Fields{
		"component": "migrate",
		"driver":    cfg.Database.Driver,
	}))
	return fn(ctx, db)
}

func printVersion(ctx context.Context, cmd *cobra.Command, db *sqlstore.DB) error {
	version, err := db.MigrationVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", version)
	return nil
}
