// Package seed fills a database with demo users and artifacts for local
// development. Everything goes through the service layer, so seeded data
// obeys the same validation as data created over HTTP.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/sakif/artifact-cms/internal/apperror"
	"github.com/sakif/artifact-cms/internal/model"
	"github.com/sakif/artifact-cms/internal/service"
)

// DefaultPassword is given to every seeded account.
const DefaultPassword = "password123"

// Options controls how much data is generated.
type Options struct {
	Users     int
	Artifacts int   // per user
	Seed      int64 // 0 picks a random seed
}

// Result summarises a seeding run.
type Result struct {
	Usernames []string
	Artifacts int
	Likes     int
}

type Registrar interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
}

type ArtifactCreator interface {
	Create(ctx context.Context, ownerID string, in service.ArtifactInput) (*model.Artifact, error)
}

type LikeToggler interface {
	Toggle(ctx context.Context, userID, artifactID string) (*service.LikeResult, error)
}

// Seeder generates demo data.
type Seeder struct {
	users     Registrar
	artifacts ArtifactCreator
	likes     LikeToggler
	logger    *slog.Logger
}

func New(users Registrar, artifacts ArtifactCreator, likes LikeToggler, logger *slog.Logger) *Seeder {
	return &Seeder{users: users, artifacts: artifacts, likes: likes, logger: logger}
}

// Run creates opts.Users accounts, opts.Artifacts artifacts for each, and
// has every user like a random subset of the public artifacts.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Users < 0 || opts.Artifacts < 0 {
		return nil, errors.New("seed: counts must not be negative")
	}
	faker := newFaker(opts.Seed)
	result := &Result{}

	var userIDs []string
	for i := 0; i < opts.Users; i++ {
		session, err := s.createUser(ctx, faker)
		if err != nil {
			return result, err
		}
		userIDs = append(userIDs, session.User.ID)
		result.Usernames = append(result.Usernames, session.User.Username)
	}

	var public []string
	for _, owner := range userIDs {
		for i := 0; i < opts.Artifacts; i++ {
			artifact, err := s.artifacts.Create(ctx, owner, fakeArtifact(faker))
			if err != nil {
				return result, fmt.Errorf("seed: creating artifact: %w", err)
			}
			result.Artifacts++
			if artifact.IsPublic {
				public = append(public, artifact.ID)
			}
		}
	}

	for _, userID := range userIDs {
		for _, artifactID := range public {
			if faker.Number(0, 2) != 0 {
				continue
			}
			if _, err := s.likes.Toggle(ctx, userID, artifactID); err != nil {
				return result, fmt.Errorf("seed: liking artifact: %w", err)
			}
			result.Likes++
		}
	}

	s.logger.Info("seed complete",
		slog.Int("users", len(result.Usernames)),
		slog.Int("artifacts", result.Artifacts),
		slog.Int("likes", result.Likes),
	)
	return result, nil
}

// createUser retries on username or email clashes, which a faker produces
// now and then.
func (s *Seeder) createUser(ctx context.Context, faker *gofakeit.Faker) (*service.AuthResult, error) {
	const attempts = 5
	var err error
	for i := 0; i < attempts; i++ {
		var session *service.AuthResult
		session, err = s.users.Register(ctx, service.RegisterInput{
			Username: fmt.Sprintf("%s%d", faker.Username(), faker.Number(100, 999)),
			Email:    faker.Email(),
			Password: DefaultPassword,
		})
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, apperror.ErrConflict) {
			break
		}
	}
	return nil, fmt.Errorf("seed: creating user: %w", err)
}
