// Command server runs the artifact store.
//
//	server                      start the HTTP server (same as "serve")
//	server serve                start the HTTP server
//	server migrate up           apply pending migrations
//	server migrate down [N]     roll back N migrations (all when N is omitted)
//	server migrate version      print the schema version
//	server seed                 fill the database with demo data
//
// Configuration comes from the environment, ./.env and an optional
// --config file; see internal/config.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/artifact-cms/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "server",
		Short:         "Artifact store: save, share, like and preview code artifacts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve()
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (yaml, toml, json or env)")

	root.AddCommand(newServeCmd(a), newMigrateCmd(a), newSeedCmd(a))
	return root
}

// load reads the configuration and builds the logger. Errors are written to
// stderr here because cobra's own error printing is silenced.
func (a *app) load(stderr io.Writer) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cfg, os.Stdout)
	return nil
}

// newLogger uses the text handler for local development and JSON when asked
// for or when running in production.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.LogFormat == "json" || cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ensureDBDir creates the directory holding a file database.
func ensureDBDir(dbPath string) error {
	if dbPath == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(dbPath), 0o755)
}

// fail logs err and returns it, so RunE funcs can end with "return a.fail(...)".
func (a *app) fail(msg string, err error) error {
	a.logger.Error(msg, slog.String("error", err.Error()))
	return err
}
