// Package repository declares the storage contracts the service layer
// depends on. Implementations live in sub-packages (repository/sqlite).
//
// Every read of an artifact is performed ON BEHALF OF a viewer: the viewer id
// decides what is visible and is used to annotate each row with whether the
// viewer has liked it. Mutations take the owner id and affect a row only when
// it matches, so authorization is enforced in the WHERE clause itself.
package repository

import (
	"context"

	"github.com/sakif/artifact-cms/internal/model"
)

// Scope narrows a listing beyond the visibility rule.
type Scope string

const (
	ScopeAll    Scope = "all"    // own + public
	ScopeMine   Scope = "mine"   // own only (public or not)
	ScopePublic Scope = "public" // public only (own or not)
)

// Valid reports whether s is a known scope. The empty scope means ScopeAll.
func (s Scope) Valid() bool {
	switch s {
	case "", ScopeAll, ScopeMine, ScopePublic:
		return true
	}
	return false
}

// ArtifactFilter holds optional list filters. Zero values mean "no filter";
// a zero Limit returns every matching row.
type ArtifactFilter struct {
	Query  string
	Type   model.ArtifactType
	Scope  Scope
	Limit  int
	Offset int
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
}

type ArtifactRepository interface {
	Create(ctx context.Context, artifact *model.Artifact) error
	GetVisible(ctx context.Context, viewerID, id string) (*model.Artifact, error)
	ListVisible(ctx context.Context, viewerID string, filter ArtifactFilter) ([]model.Artifact, error)
	UpdateOwned(ctx context.Context, ownerID string, artifact *model.Artifact) error
	DeleteOwned(ctx context.Context, ownerID, id string) error
}

type LikeRepository interface {
	// Toggle flips the (user, artifact) like and reports the new state.
	Toggle(ctx context.Context, userID, artifactID string) (liked bool, err error)
	Count(ctx context.Context, artifactID string) (int, error)
}
