package seed

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/artifact-cms/internal/auth"
	"github.com/sakif/artifact-cms/internal/repository"
	"github.com/sakif/artifact-cms/internal/repository/sqlite"
	"github.com/sakif/artifact-cms/internal/service"
)

type services struct {
	auth      *service.AuthService
	artifacts *service.ArtifactService
	likes     *service.LikeService
	seeder    *Seeder
}

func newServices(t *testing.T) *services {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("seed-test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	passwords, err := auth.NewPasswordService(bcrypt.MinCost)
	require.NoError(t, err)

	s := &services{
		auth:      service.NewAuthService(db.Users(), tokens, passwords, logger),
		artifacts: service.NewArtifactService(db.Artifacts(), logger),
		likes:     service.NewLikeService(db.Artifacts(), db.Likes(), logger),
	}
	s.seeder = New(s.auth, s.artifacts, s.likes, logger)
	return s
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)

	result, err := s.seeder.Run(ctx, Options{Users: 3, Artifacts: 4, Seed: 42})
	require.NoError(t, err)
	require.Len(t, result.Usernames, 3)
	assert.Equal(t, 12, result.Artifacts)

	likes := 0
	for _, username := range result.Usernames {
		session, err := s.auth.Login(ctx, username, DefaultPassword)
		require.NoError(t, err, "seeded user %s should be able to sign in", username)

		mine, err := s.artifacts.List(ctx, session.User.ID, repository.ArtifactFilter{Scope: repository.ScopeMine})
		require.NoError(t, err)
		assert.Len(t, mine, 4)
		for _, a := range mine {
			likes += a.LikeCount
			if !a.IsPublic {
				assert.Zero(t, a.LikeCount, "only public artifacts are liked")
			}
		}
	}
	assert.Equal(t, result.Likes, likes)
}

func TestRun_Empty(t *testing.T) {
	result, err := newServices(t).seeder.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Usernames)
	assert.Zero(t, result.Artifacts)
}

func TestRun_NegativeCounts(t *testing.T) {
	_, err := newServices(t).seeder.Run(context.Background(), Options{Users: -1})
	assert.Error(t, err)
}

func TestFakeArtifact_IsValid(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	session, err := s.auth.Register(ctx, service.RegisterInput{Username: "owner", Email: "owner@example.com", Password: DefaultPassword})
	require.NoError(t, err)

	faker := newFaker(7)
	for i := 0; i < 50; i++ {
		_, err := s.artifacts.Create(ctx, session.User.ID, fakeArtifact(faker))
		require.NoError(t, err)
	}
}
