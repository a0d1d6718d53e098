package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/artifact-cms/internal/auth"
	"github.com/sakif/artifact-cms/internal/repository/sqlite"
	"github.com/sakif/artifact-cms/internal/seed"
	"github.com/sakif/artifact-cms/internal/service"
)

func newSeedCmd(a *app) *cobra.Command {
	var opts seed.Options

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with demo users and artifacts",
		Long: "Creates demo accounts (password \"" + seed.DefaultPassword + "\"), " +
			"artifacts for each of them, and some likes on the public ones.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSeed(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.Users, "users", 5, "number of users to create")
	cmd.Flags().IntVar(&opts.Artifacts, "artifacts", 4, "artifacts per user")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed (0 picks one)")
	return cmd
}

func (a *app) runSeed(cmd *cobra.Command, opts seed.Options) error {
	if err := ensureDBDir(a.cfg.DBPath); err != nil {
		return a.fail("failed to create database directory", err)
	}
	db, err := sqlite.New(a.cfg.DBPath)
	if err != nil {
		return a.fail("failed to open database", err)
	}
	defer db.Close()

	tokens, err := auth.NewTokenService(a.cfg.JWTSecret, a.cfg.TokenTTL)
	if err != nil {
		return a.fail("invalid token settings", err)
	}
	passwords, err := auth.NewPasswordService(a.cfg.BcryptCost)
	if err != nil {
		return a.fail("invalid bcrypt cost", err)
	}

	seeder := seed.New(
		service.NewAuthService(db.Users(), tokens, passwords, a.logger),
		service.NewArtifactService(db.Artifacts(), a.logger),
		service.NewLikeService(db.Artifacts(), db.Likes(), a.logger),
		a.logger,
	)

	result, err := seeder.Run(context.Background(), opts)
	if err != nil {
		return a.fail("seeding failed", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "created %d users, %d artifacts, %d likes\n", len(result.Usernames), result.Artifacts, result.Likes)
	for _, username := range result.Usernames {
		fmt.Fprintf(out, "  %s / %s\n", username, seed.DefaultPassword)
	}
	return nil
}
