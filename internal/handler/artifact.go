package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/artifact-cms/internal/apperror"
	"github.com/sakif/artifact-cms/internal/auth"
	"github.com/sakif/artifact-cms/internal/model"
	"github.com/sakif/artifact-cms/internal/render"
	"github.com/sakif/artifact-cms/internal/repository"
	"github.com/sakif/artifact-cms/internal/service"
)

// ArtifactService is the part of service.ArtifactService the handlers call.
type ArtifactService interface {
	Create(ctx context.Context, ownerID string, in service.ArtifactInput) (*model.Artifact, error)
	List(ctx context.Context, viewerID string, filter repository.ArtifactFilter) ([]model.Artifact, error)
	Get(ctx context.Context, viewerID, id string) (*model.Artifact, error)
	Update(ctx context.Context, ownerID, id string, patch service.ArtifactPatch) (*model.Artifact, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// LikeService is implemented by *service.LikeService.
type LikeService interface {
	Toggle(ctx context.Context, userID, artifactID string) (*service.LikeResult, error)
}

// Renderer is implemented by *render.Renderer.
type Renderer interface {
	Render(a *model.Artifact) (*render.Document, error)
}

// ArtifactHandler serves the /api/artifacts routes. Every route is behind
// RequireAuth, so an identity is always present in the context.
type ArtifactHandler struct {
	artifacts ArtifactService
	likes     LikeService
	renderer  Renderer
	logger    *slog.Logger
}

func NewArtifactHandler(artifacts ArtifactService, likes LikeService, renderer Renderer, logger *slog.Logger) *ArtifactHandler {
	return &ArtifactHandler{artifacts: artifacts, likes: likes, renderer: renderer, logger: logger}
}

// artifactRequest is the body of create and update. Pointers tell "absent"
// apart from "empty", which is what makes PUT a partial update.
type artifactRequest struct {
	Title       *string             `json:"title"`
	Type        *model.ArtifactType `json:"type"`
	Description *string             `json:"description"`
	Code        *string             `json:"code"`
	Tags        *model.Tags         `json:"tags"`
	IsPublic    *bool               `json:"isPublic"`
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// identity pulls the caller from the context, writing a 401 if it is missing.
func (h *ArtifactHandler) identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("authentication required"))
	}
	return id, ok
}

// HandleList returns the artifacts visible to the caller.
//
// HTTP: GET /api/artifacts?q=&type=&scope=&limit=&offset=
func (h *ArtifactHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := repository.ArtifactFilter{
		Query: query.Get("q"),
		Type:  model.ArtifactType(query.Get("type")),
		Scope: repository.Scope(query.Get("scope")),
	}

	var err error
	if filter.Limit, err = intParam(query.Get("limit"), "limit"); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if filter.Offset, err = intParam(query.Get("offset"), "offset"); err != nil {
		writeError(w, h.logger, err)
		return
	}

	artifacts, err := h.artifacts.List(r.Context(), id.UserID, filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, artifacts)
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperror.ValidationFailed(name, name+" must be a non-negative integer")
	}
	return n, nil
}

// HandleCreate stores a new artifact owned by the caller.
//
// HTTP: POST /api/artifacts → 201 artifact
func (h *ArtifactHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req artifactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	artifact, err := h.artifacts.Create(r.Context(), id.UserID, service.ArtifactInput{
		Title:       deref(req.Title),
		Type:        deref(req.Type),
		Description: deref(req.Description),
		Code:        deref(req.Code),
		Tags:        deref(req.Tags),
		IsPublic:    deref(req.IsPublic),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, artifact)
}

// HandleGet returns one visible artifact.
//
// HTTP: GET /api/artifacts/{id}
func (h *ArtifactHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	artifact, err := h.artifacts.Get(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

// HandleUpdate applies a partial update to the caller's artifact.
//
// HTTP: PUT /api/artifacts/{id}
func (h *ArtifactHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req artifactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	artifact, err := h.artifacts.Update(r.Context(), id.UserID, chi.URLParam(r, "id"), service.ArtifactPatch{
		Title:       req.Title,
		Type:        req.Type,
		Description: req.Description,
		Code:        req.Code,
		Tags:        req.Tags,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

// HandleDelete removes the caller's artifact.
//
// HTTP: DELETE /api/artifacts/{id} → 200 {"message": ...}
func (h *ArtifactHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	if err := h.artifacts.Delete(r.Context(), id.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Artifact deleted successfully"})
}

// HandleToggleLike flips the caller's like.
//
// HTTP: POST /api/artifacts/{id}/like → {"liked": bool, "likeCount": n}
func (h *ArtifactHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	result, err := h.likes.Toggle(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandlePreview serves the artifact as a sandboxed document.
//
// HTTP: GET /api/artifacts/{id}/preview
func (h *ArtifactHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	artifact, err := h.artifacts.Get(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	doc, err := h.renderer.Render(artifact)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	header := w.Header()
	header.Set("Content-Type", doc.ContentType)
	header.Set("Content-Security-Policy", doc.ContentSecurityPolicy)
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("Referrer-Policy", "no-referrer")
	header.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Body)
}

// TypeDescriptor describes one artifact type for the client's type picker.
type TypeDescriptor struct {
	Value    model.ArtifactType `json:"value"`
	Label    string             `json:"label"`
	Strategy render.Strategy    `json:"strategy"`
}

// HandleTypes lists the supported artifact types.
//
// HTTP: GET /api/artifact-types
func (h *ArtifactHandler) HandleTypes(w http.ResponseWriter, r *http.Request) {
	types := model.ArtifactTypes()
	out := make([]TypeDescriptor, len(types))
	for i, t := range types {
		out[i] = TypeDescriptor{Value: t.Value, Label: t.Label, Strategy: render.StrategyFor(t.Value)}
	}
	writeJSON(w, http.StatusOK, out)
}
