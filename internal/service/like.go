package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/artifact-cms/internal/metrics"
	"github.com/sakif/artifact-cms/internal/repository"
)

// LikeResult is the state after a toggle.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

// LikeService toggles likes on artifacts the caller can see.
type LikeService struct {
	artifacts repository.ArtifactRepository
	likes     repository.LikeRepository
	logger    *slog.Logger
}

func NewLikeService(artifacts repository.ArtifactRepository, likes repository.LikeRepository, logger *slog.Logger) *LikeService {
	return &LikeService{artifacts: artifacts, likes: likes, logger: logger}
}

// Toggle likes the artifact if userID has not, or unlikes it if they have.
// Liking requires visibility: a private artifact of another user is not found.
func (s *LikeService) Toggle(ctx context.Context, userID, artifactID string) (*LikeResult, error) {
	if _, err := s.artifacts.GetVisible(ctx, userID, artifactID); err != nil {
		return nil, err
	}

	liked, err := s.likes.Toggle(ctx, userID, artifactID)
	if err != nil {
		return nil, fmt.Errorf("toggling like: %w", err)
	}

	count, err := s.likes.Count(ctx, artifactID)
	if err != nil {
		return nil, fmt.Errorf("counting likes: %w", err)
	}

	result := "unliked"
	if liked {
		result = "liked"
	}
	s.logger.Info("like toggled",
		slog.String("artifact", artifactID),
		slog.String("user", userID),
		slog.String("result", result),
	)
	metrics.LikeToggles.WithLabelValues(result).Inc()

	return &LikeResult{Liked: liked, LikeCount: count}, nil
}
