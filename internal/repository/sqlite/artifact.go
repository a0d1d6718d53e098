package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"
	"github.com/sakif/artifact-cms/internal/apperror"
	"github.com/sakif/artifact-cms/internal/model"
	"github.com/sakif/artifact-cms/internal/repository"
)

// compile-time check that *ArtifactDB implements repository.ArtifactRepository
var _ repository.ArtifactRepository = (*ArtifactDB)(nil)

// ArtifactDB stores artifacts and annotates them on the way out.
type ArtifactDB struct {
	conn *sqlx.DB
}

// annotatedSelect returns every stored column plus the three derived ones.
// It takes ONE positional argument: the viewer id used for viewer_has_liked.
//
// The two subqueries run per row. With the idx_likes_artifact_id index that
// is an index lookup each, which is fine for page-sized result sets.
const annotatedSelect = `
	SELECT a.id, a.owner_id, a.title, a.type, a.description, a.code, a.tags,
	       a.is_public, a.created_at, a.updated_at,
	       u.username AS username,
	       (SELECT COUNT(*) FROM likes l WHERE l.artifact_id = a.id) AS like_count,
	       EXISTS (SELECT 1 FROM likes l WHERE l.artifact_id = a.id AND l.user_id = ?) AS viewer_has_liked
	FROM artifacts a
	JOIN users u ON u.id = a.owner_id`

// Create inserts a new artifact, assigning its ID and both timestamps.
// The derived fields are left at their zero values; callers that need them
// read the row back through GetVisible.
func (r *ArtifactDB) Create(ctx context.Context, artifact *model.Artifact) error {
	now := time.Now().UTC()
	artifact.ID = xid.New().String()
	artifact.CreatedAt = now
	artifact.UpdatedAt = now
	if artifact.Tags == nil {
		artifact.Tags = model.Tags{}
	}

	_, err := r.conn.NamedExecContext(ctx,
		`INSERT INTO artifacts (id, owner_id, title, type, description, code, tags, is_public, created_at, updated_at)
		 VALUES (:id, :owner_id, :title, :type, :description, :code, :tags, :is_public, :created_at, :updated_at)`,
		artifact,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting artifact %q: %w", artifact.Title, err)
	}
	return nil
}

// GetVisible returns one annotated artifact if viewerID may see it.
//
// A private artifact owned by someone else is reported as NOT FOUND rather
// than forbidden, so the response never confirms that the id exists.
func (r *ArtifactDB) GetVisible(ctx context.Context, viewerID, id string) (*model.Artifact, error) {
	var a model.Artifact
	err := r.conn.GetContext(ctx, &a,
		annotatedSelect+` WHERE a.id = ? AND (a.owner_id = ? OR a.is_public = 1)`,
		viewerID, id, viewerID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("artifact", id)
		}
		return nil, fmt.Errorf("sqlite: getting artifact %s: %w", id, err)
	}
	return &a, nil
}

// ListVisible returns the annotated artifacts viewerID may see, most
// recently updated first, narrowed by filter.
//
// Ties on updated_at fall back to created_at and then id, so pagination is
// stable even when several rows were written in the same instant.
func (r *ArtifactDB) ListVisible(ctx context.Context, viewerID string, filter repository.ArtifactFilter) ([]model.Artifact, error) {
	var (
		query strings.Builder
		args  = []any{viewerID}
	)

	query.WriteString(annotatedSelect)
	query.WriteString(` WHERE (a.owner_id = ? OR a.is_public = 1)`)
	args = append(args, viewerID)

	switch filter.Scope {
	case repository.ScopeMine:
		query.WriteString(` AND a.owner_id = ?`)
		args = append(args, viewerID)
	case repository.ScopePublic:
		query.WriteString(` AND a.is_public = 1`)
	}

	if filter.Type != "" {
		query.WriteString(` AND a.type = ?`)
		args = append(args, string(filter.Type))
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		// Tags are stored as JSON text, so a LIKE over the column matches
		// any tag containing the term.
		pattern := "%" + escapeLike(q) + "%"
		query.WriteString(` AND (a.title LIKE ? ESCAPE '\' OR a.description LIKE ? ESCAPE '\'` +
			` OR a.tags LIKE ? ESCAPE '\' OR u.username LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern, pattern)
	}

	query.WriteString(` ORDER BY a.updated_at DESC, a.created_at DESC, a.id DESC`)

	// SQLite only accepts OFFSET after a LIMIT; -1 means "no limit".
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, limit, max(filter.Offset, 0))
	}

	artifacts := []model.Artifact{}
	if err := r.conn.SelectContext(ctx, &artifacts, query.String(), args...); err != nil {
		return nil, fmt.Errorf("sqlite: listing artifacts: %w", err)
	}
	return artifacts, nil
}

// escapeLike neutralises LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// UpdateOwned overwrites the mutable fields of an artifact and bumps
// updated_at. The owner check lives in the WHERE clause: if the artifact
// does not exist OR belongs to someone else, no row matches and the caller
// gets apperror.ErrNotFound either way.
func (r *ArtifactDB) UpdateOwned(ctx context.Context, ownerID string, artifact *model.Artifact) error {
	updatedAt := time.Now().UTC()
	if artifact.Tags == nil {
		artifact.Tags = model.Tags{}
	}

	res, err := r.conn.ExecContext(ctx,
		`UPDATE artifacts
		 SET title = ?, type = ?, description = ?, code = ?, tags = ?, is_public = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		artifact.Title,
		artifact.Type,
		artifact.Description,
		artifact.Code,
		artifact.Tags,
		artifact.IsPublic,
		updatedAt,
		artifact.ID,
		ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating artifact %s: %w", artifact.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("artifact", artifact.ID)
	}

	artifact.UpdatedAt = updatedAt
	return nil
}

// DeleteOwned removes an artifact together with every like that references it.
//
// The likes foreign key already cascades, but the explicit DELETE keeps the
// behaviour intact on a database opened without foreign_keys enabled. Both
// statements share one transaction, so a reader never sees likes pointing at
// a missing artifact.
func (r *ArtifactDB) DeleteOwned(ctx context.Context, ownerID, id string) error {
	tx, err := r.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete of artifact %s: %w", id, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting artifact %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("artifact", id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM likes WHERE artifact_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting likes of artifact %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete of artifact %s: %w", id, err)
	}
	return nil
}
