// Package service contains the business rules of the artifact store.
//
//	Handler (HTTP)  →  Service (validation, ownership, logging)  →  Repository (SQL)
//
// Services take plain Go values and return domain errors from apperror; they
// know nothing about HTTP. The repositories they depend on are interfaces,
// so tests swap in the in-memory fakes from fakes_test.go.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/artifact-cms/internal/apperror"
	"github.com/sakif/artifact-cms/internal/metrics"
	"github.com/sakif/artifact-cms/internal/model"
	"github.com/sakif/artifact-cms/internal/repository"
)

// Validation limits.
const (
	MaxTitleLength = 200     // characters
	MaxCodeBytes   = 1 << 20 // 1 MiB
	MaxListLimit   = 100
)

// ArtifactInput carries the fields of a new artifact.
type ArtifactInput struct {
	Title       string
	Type        model.ArtifactType
	Description string
	Code        string
	Tags        model.Tags
	IsPublic    bool
}

// ArtifactPatch is a partial update. A nil field is left unchanged.
type ArtifactPatch struct {
	Title       *string
	Type        *model.ArtifactType
	Description *string
	Code        *string
	Tags        *model.Tags
	IsPublic    *bool
}

// ArtifactService handles the artifact lifecycle.
type ArtifactService struct {
	repo   repository.ArtifactRepository
	logger *slog.Logger
}

func NewArtifactService(repo repository.ArtifactRepository, logger *slog.Logger) *ArtifactService {
	return &ArtifactService{repo: repo, logger: logger}
}

// Create validates and stores a new artifact owned by ownerID, then reads it
// back so the result carries the owner's username and the like annotations.
func (s *ArtifactService) Create(ctx context.Context, ownerID string, in ArtifactInput) (*model.Artifact, error) {
	artifact := &model.Artifact{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(in.Title),
		Type:        model.ArtifactType(strings.TrimSpace(string(in.Type))),
		Description: strings.TrimSpace(in.Description),
		Code:        in.Code,
		Tags:        model.NormalizeTags(in.Tags),
		IsPublic:    in.IsPublic,
	}
	if err := validateArtifact(artifact); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, artifact); err != nil {
		s.logger.Error("failed to create artifact",
			slog.String("owner", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating artifact: %w", err)
	}

	s.logger.Info("artifact created",
		slog.String("id", artifact.ID),
		slog.String("owner", ownerID),
		slog.String("type", string(artifact.Type)),
	)
	metrics.ArtifactEvents.WithLabelValues("created").Inc()

	return s.repo.GetVisible(ctx, ownerID, artifact.ID)
}

// List returns the artifacts viewerID can see.
//
// Limit is clamped to MaxListLimit; 0 means no limit. Negative values are
// treated as 0.
func (s *ArtifactService) List(ctx context.Context, viewerID string, filter repository.ArtifactFilter) ([]model.Artifact, error) {
	if !filter.Scope.Valid() {
		return nil, apperror.ValidationFailed("scope", "scope must be one of all, mine, public")
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperror.ValidationFailed("type", fmt.Sprintf("unsupported artifact type %q", filter.Type))
	}
	filter.Limit = min(max(filter.Limit, 0), MaxListLimit)
	filter.Offset = max(filter.Offset, 0)

	artifacts, err := s.repo.ListVisible(ctx, viewerID, filter)
	if err != nil {
		s.logger.Error("failed to list artifacts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	return artifacts, nil
}

// Get returns one artifact if viewerID can see it.
func (s *ArtifactService) Get(ctx context.Context, viewerID, id string) (*model.Artifact, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "artifact ID is required")
	}
	return s.repo.GetVisible(ctx, viewerID, id)
}

// Update applies patch to an artifact owned by ownerID.
//
// An artifact the caller can see but does not own is reported as not found,
// exactly like one that does not exist.
func (s *ArtifactService) Update(ctx context.Context, ownerID, id string, patch ArtifactPatch) (*model.Artifact, error) {
	artifact, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !artifact.OwnedBy(ownerID) {
		return nil, apperror.NotFound("artifact", id)
	}

	if patch.Title != nil {
		artifact.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Type != nil {
		artifact.Type = model.ArtifactType(strings.TrimSpace(string(*patch.Type)))
	}
	if patch.Description != nil {
		artifact.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Code != nil {
		artifact.Code = *patch.Code
	}
	if patch.Tags != nil {
		artifact.Tags = model.NormalizeTags(*patch.Tags)
	}
	if patch.IsPublic != nil {
		artifact.IsPublic = *patch.IsPublic
	}
	if err := validateArtifact(artifact); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateOwned(ctx, ownerID, artifact); err != nil {
		return nil, err
	}

	s.logger.Info("artifact updated", slog.String("id", id), slog.String("owner", ownerID))
	metrics.ArtifactEvents.WithLabelValues("updated").Inc()

	return s.repo.GetVisible(ctx, ownerID, id)
}

// Delete removes an artifact owned by ownerID, along with its likes.
func (s *ArtifactService) Delete(ctx context.Context, ownerID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "artifact ID is required")
	}

	if err := s.repo.DeleteOwned(ctx, ownerID, id); err != nil {
		return err
	}

	s.logger.Info("artifact deleted", slog.String("id", id), slog.String("owner", ownerID))
	metrics.ArtifactEvents.WithLabelValues("deleted").Inc()
	return nil
}

func validateArtifact(a *model.Artifact) error {
	switch {
	case a.Title == "":
		return apperror.ValidationFailed("title", "title is required")
	case utf8.RuneCountInString(a.Title) > MaxTitleLength:
		return apperror.ValidationFailed("title", fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	case a.Type == "":
		return apperror.ValidationFailed("type", "type is required")
	case !a.Type.Valid():
		return apperror.ValidationFailed("type", fmt.Sprintf("unsupported artifact type %q", a.Type))
	case strings.TrimSpace(a.Code) == "":
		return apperror.ValidationFailed("code", "code is required")
	case len(a.Code) > MaxCodeBytes:
		return apperror.ValidationFailed("code", "code must be 1 MiB or less")
	}
	return nil
}
