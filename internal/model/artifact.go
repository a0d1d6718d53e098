package model

import "time"

// ArtifactType is the declared render type of an artifact.
type ArtifactType string

const (
	TypeHTML     ArtifactType = "html"
	TypeReact    ArtifactType = "react"
	TypeMarkdown ArtifactType = "markdown"
	TypeMermaid  ArtifactType = "mermaid"
	TypeSVG      ArtifactType = "svg"
)

// TypeInfo describes one artifact type for clients building a type picker.
type TypeInfo struct {
	Value ArtifactType `json:"value"`
	Label string       `json:"label"`
}

var artifactTypes = []TypeInfo{
	{Value: TypeHTML, Label: "HTML"},
	{Value: TypeReact, Label: "React (JSX)"},
	{Value: TypeMarkdown, Label: "Markdown"},
	{Value: TypeMermaid, Label: "Mermaid"},
	{Value: TypeSVG, Label: "SVG"},
}

// ArtifactTypes returns the supported types in display order.
// The returned slice is a copy.
func ArtifactTypes() []TypeInfo {
	out := make([]TypeInfo, len(artifactTypes))
	copy(out, artifactTypes)
	return out
}

// Valid reports whether t is one of the enumerated artifact types.
func (t ArtifactType) Valid() bool {
	for _, info := range artifactTypes {
		if info.Value == t {
			return true
		}
	}
	return false
}

// Artifact is a stored code snippet with a declared render type.
//
// The last three data fields are DERIVED, not stored:
//   - Username is joined in from the owner's users row
//   - LikeCount is a COUNT over the likes table
//   - ViewerHasLiked is computed for whoever is asking
//
// Every read path in the repository fills them in, so an Artifact handed to
// a handler is always "annotated" for the requesting identity.
type Artifact struct {
	ID          string       `json:"id"          db:"id"`
	OwnerID     string       `json:"ownerId"     db:"owner_id"`
	Title       string       `json:"title"       db:"title"`
	Type        ArtifactType `json:"type"        db:"type"`
	Description string       `json:"description" db:"description"`
	Code        string       `json:"code"        db:"code"`
	Tags        Tags         `json:"tags"        db:"tags"`
	IsPublic    bool         `json:"isPublic"    db:"is_public"`
	CreatedAt   time.Time    `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt"   db:"updated_at"`

	Username       string `json:"username"  db:"username"`
	LikeCount      int    `json:"likeCount" db:"like_count"`
	ViewerHasLiked bool   `json:"userLiked" db:"viewer_has_liked"`
}

// VisibleTo reports whether userID may read the artifact.
func (a *Artifact) VisibleTo(userID string) bool {
	return a.OwnerID == userID || a.IsPublic
}

// OwnedBy reports whether userID may modify or delete the artifact.
func (a *Artifact) OwnedBy(userID string) bool {
	return a.OwnerID == userID
}
