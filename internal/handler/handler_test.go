package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/artifact-cms/internal/auth"
	"github.com/sakif/artifact-cms/internal/handler"
	"github.com/sakif/artifact-cms/internal/model"
	"github.com/sakif/artifact-cms/internal/render"
	"github.com/sakif/artifact-cms/internal/repository"
	"github.com/sakif/artifact-cms/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =========================================================================
// FAKE SERVICES
// =========================================================================

type fakeAuthService struct {
	result *service.AuthResult
	user   *model.User
	err    error

	gotRegister service.RegisterInput
	gotLogin    [2]string
	gotGitHub   *auth.GitHubUser
}

func (f *fakeAuthService) Register(_ context.Context, in service.RegisterInput) (*service.AuthResult, error) {
	f.gotRegister = in
	return f.result, f.err
}

func (f *fakeAuthService) Login(_ context.Context, username, password string) (*service.AuthResult, error) {
	f.gotLogin = [2]string{username, password}
	return f.result, f.err
}

func (f *fakeAuthService) LoginWithGitHub(_ context.Context, gh *auth.GitHubUser) (*service.AuthResult, error) {
	f.gotGitHub = gh
	return f.result, f.err
}

func (f *fakeAuthService) CurrentUser(_ context.Context, _ auth.Identity) (*model.User, error) {
	return f.user, f.err
}

type fakeGitHub struct {
	user *auth.GitHubUser
	err  error
}

func (f *fakeGitHub) AuthURL(state string) string {
	return "https://github.example/authorize?state=" + state
}

func (f *fakeGitHub) Exchange(_ context.Context, code string) (*auth.GitHubUser, error) {
	return f.user, f.err
}

type fakeArtifactService struct {
	artifact *model.Artifact
	list     []model.Artifact
	err      error

	gotViewer string
	gotID     string
	gotFilter repository.ArtifactFilter
	gotInput  service.ArtifactInput
	gotPatch  service.ArtifactPatch
}

func (f *fakeArtifactService) Create(_ context.Context, ownerID string, in service.ArtifactInput) (*model.Artifact, error) {
	f.gotViewer, f.gotInput = ownerID, in
	return f.artifact, f.err
}

func (f *fakeArtifactService) List(_ context.Context, viewerID string, filter repository.ArtifactFilter) ([]model.Artifact, error) {
	f.gotViewer, f.gotFilter = viewerID, filter
	return f.list, f.err
}

func (f *fakeArtifactService) Get(_ context.Context, viewerID, id string) (*model.Artifact, error) {
	f.gotViewer, f.gotID = viewerID, id
	return f.artifact, f.err
}

func (f *fakeArtifactService) Update(_ context.Context, ownerID, id string, patch service.ArtifactPatch) (*model.Artifact, error) {
	f.gotViewer, f.gotID, f.gotPatch = ownerID, id, patch
	return f.artifact, f.err
}

func (f *fakeArtifactService) Delete(_ context.Context, ownerID, id string) error {
	f.gotViewer, f.gotID = ownerID, id
	return f.err
}

type fakeLikeService struct {
	result *service.LikeResult
	err    error
}

func (f *fakeLikeService) Toggle(_ context.Context, _, _ string) (*service.LikeResult, error) {
	return f.result, f.err
}

// =========================================================================
// HELPERS
// =========================================================================

var alice = auth.Identity{UserID: "user-1", Username: "alice"}

// newArtifactRouter mounts the artifact handlers the way the server does,
// with a stub in place of RequireAuth that injects alice.
func newArtifactRouter(t *testing.T, artifacts *fakeArtifactService, likes *fakeLikeService) http.Handler {
	t.Helper()
	renderer, err := render.New(render.DefaultOptions())
	require.NoError(t, err)

	h := handler.NewArtifactHandler(artifacts, likes, renderer, discardLogger())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithIdentity(req.Context(), alice)))
		})
	})
	r.Get("/api/artifact-types", h.HandleTypes)
	r.Get("/api/artifacts", h.HandleList)
	r.Post("/api/artifacts", h.HandleCreate)
	r.Get("/api/artifacts/{id}", h.HandleGet)
	r.Put("/api/artifacts/{id}", h.HandleUpdate)
	r.Delete("/api/artifacts/{id}", h.HandleDelete)
	r.Post("/api/artifacts/{id}/like", h.HandleToggleLike)
	r.Get("/api/artifacts/{id}/preview", h.HandlePreview)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func sampleArtifact() *model.Artifact {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &model.Artifact{
		ID:        "art-1",
		OwnerID:   alice.UserID,
		Title:     "Hello",
		Type:      model.TypeHTML,
		Code:      "<h1>hi</h1>",
		Tags:      model.Tags{"demo"},
		IsPublic:  true,
		CreatedAt: now,
		UpdatedAt: now,
		Username:  alice.Username,
	}
}
