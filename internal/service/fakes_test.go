package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sakif/artifact-cms/internal/apperror"
	"github.com/sakif/artifact-cms/internal/model"
	"github.com/sakif/artifact-cms/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// In-memory stand-ins for the repository interfaces. They implement the same
// visibility and ownership rules as the SQLite stores, so service tests
// exercise real behaviour without a database. Set the *Err fields to
// simulate storage failures.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	users  map[string]*model.User
	nextID int

	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.Conflict("username", "username already exists")
		}
		if u.Email == user.Email {
			return apperror.Conflict("email", "email already exists")
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now().UTC()
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, apperror.NotFound("user", id)
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUserRepo) GetByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == githubID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", fmt.Sprint(githubID))
}

// fakeStore backs both the artifact and like fakes so annotations line up.
type fakeStore struct {
	users     *fakeUserRepo
	artifacts map[string]*model.Artifact
	likes     map[[2]string]bool // (userID, artifactID)
	nextID    int
	clock     time.Time

	listErr error
}

func newFakeStore(users *fakeUserRepo) *fakeStore {
	return &fakeStore{
		users:     users,
		artifacts: make(map[string]*model.Artifact),
		likes:     make(map[[2]string]bool),
		clock:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns strictly increasing timestamps.
func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) annotate(viewerID string, a *model.Artifact) model.Artifact {
	out := *a
	out.Tags = append(model.Tags{}, a.Tags...)
	if u, ok := f.users.users[a.OwnerID]; ok {
		out.Username = u.Username
	}
	out.LikeCount = 0
	for key := range f.likes {
		if key[1] == a.ID {
			out.LikeCount++
		}
	}
	out.ViewerHasLiked = f.likes[[2]string{viewerID, a.ID}]
	return out
}

type fakeArtifactRepo struct{ *fakeStore }

func (f fakeArtifactRepo) Create(_ context.Context, a *model.Artifact) error {
	f.nextID++
	a.ID = fmt.Sprintf("art-%d", f.nextID)
	a.CreatedAt = f.tick()
	a.UpdatedAt = a.CreatedAt
	stored := *a
	f.artifacts[a.ID] = &stored
	return nil
}

func (f fakeArtifactRepo) GetVisible(_ context.Context, viewerID, id string) (*model.Artifact, error) {
	a, ok := f.artifacts[id]
	if !ok || !a.VisibleTo(viewerID) {
		return nil, apperror.NotFound("artifact", id)
	}
	out := f.annotate(viewerID, a)
	return &out, nil
}

func (f fakeArtifactRepo) ListVisible(_ context.Context, viewerID string, filter repository.ArtifactFilter) ([]model.Artifact, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []model.Artifact{}
	for _, a := range f.artifacts {
		if !a.VisibleTo(viewerID) {
			continue
		}
		if filter.Scope == repository.ScopeMine && a.OwnerID != viewerID {
			continue
		}
		if filter.Scope == repository.ScopePublic && !a.IsPublic {
			continue
		}
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(a.Title), strings.ToLower(filter.Query)) {
			continue
		}
		out = append(out, f.annotate(viewerID, a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })

	if filter.Offset >= len(out) {
		return []model.Artifact{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f fakeArtifactRepo) UpdateOwned(_ context.Context, ownerID string, a *model.Artifact) error {
	existing, ok := f.artifacts[a.ID]
	if !ok || existing.OwnerID != ownerID {
		return apperror.NotFound("artifact", a.ID)
	}
	a.UpdatedAt = f.tick()
	stored := *a
	stored.CreatedAt = existing.CreatedAt
	f.artifacts[a.ID] = &stored
	return nil
}

func (f fakeArtifactRepo) DeleteOwned(_ context.Context, ownerID, id string) error {
	existing, ok := f.artifacts[id]
	if !ok || existing.OwnerID != ownerID {
		return apperror.NotFound("artifact", id)
	}
	delete(f.artifacts, id)
	for key := range f.likes {
		if key[1] == id {
			delete(f.likes, key)
		}
	}
	return nil
}

type fakeLikeRepo struct{ *fakeStore }

func (f fakeLikeRepo) Toggle(_ context.Context, userID, artifactID string) (bool, error) {
	key := [2]string{userID, artifactID}
	if f.likes[key] {
		delete(f.likes, key)
		return false, nil
	}
	f.likes[key] = true
	return true, nil
}

func (f fakeLikeRepo) Count(_ context.Context, artifactID string) (int, error) {
	n := 0
	for key := range f.likes {
		if key[1] == artifactID {
			n++
		}
	}
	return n, nil
}

var (
	_ repository.UserRepository     = (*fakeUserRepo)(nil)
	_ repository.ArtifactRepository = fakeArtifactRepo{}
	_ repository.LikeRepository     = fakeLikeRepo{}
)
