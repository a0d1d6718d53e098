package main

import (
	"github.com/spf13/cobra"

	"github.com/sakif/artifact-cms/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve()
		},
	}
}

// serve blocks until SIGINT or SIGTERM.
func (a *app) serve() error {
	if err := ensureDBDir(a.cfg.DBPath); err != nil {
		return a.fail("failed to create database directory", err)
	}

	srv, err := server.New(a.cfg, a.logger)
	if err != nil {
		return a.fail("failed to create server", err)
	}
	if err := srv.Start(); err != nil {
		return a.fail("server error", err)
	}
	return nil
}
