package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sakif/artifact-cms/internal/repository/sqlite"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withDB(func(db *sqlite.DB) error {
					if err := db.MigrateUp(); err != nil {
						return err
					}
					return a.reportVersion(cmd, db)
				})
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (all of them when steps is omitted)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 0
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n < 1 {
						return fmt.Errorf("steps must be a positive integer, got %q", args[0])
					}
					steps = n
				}
				return a.withDB(func(db *sqlite.DB) error {
					if err := db.MigrateDown(steps); err != nil {
						return err
					}
					return a.reportVersion(cmd, db)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withDB(func(db *sqlite.DB) error {
					return a.reportVersion(cmd, db)
				})
			},
		},
	)
	return cmd
}

// withDB opens the database without migrating it and closes it afterwards.
func (a *app) withDB(fn func(db *sqlite.DB) error) error {
	if err := ensureDBDir(a.cfg.DBPath); err != nil {
		return a.fail("failed to create database directory", err)
	}
	db, err := sqlite.Open(a.cfg.DBPath)
	if err != nil {
		return a.fail("failed to open database", err)
	}
	defer db.Close()

	if err := fn(db); err != nil {
		return a.fail("migration failed", err)
	}
	return nil
}

func (a *app) reportVersion(cmd *cobra.Command, db *sqlite.DB) error {
	version, dirty, err := db.MigrationVersion()
	if err != nil {
		return err
	}
	a.logger.Info("schema version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
	return nil
}
