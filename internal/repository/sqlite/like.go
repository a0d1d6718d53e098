package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sakif/artifact-cms/internal/repository"
)

// compile-time check that *LikeDB implements repository.LikeRepository
var _ repository.LikeRepository = (*LikeDB)(nil)

// LikeDB stores (user, artifact) like pairs.
type LikeDB struct {
	conn *sqlx.DB
}

// Toggle removes the like if it exists, otherwise adds it.
//
// Both steps run in one transaction. The DELETE is the first statement, so
// the transaction takes SQLite's write lock before it decides anything, and
// two concurrent toggles by the same user are applied one after the other.
func (l *LikeDB) Toggle(ctx context.Context, userID, artifactID string) (bool, error) {
	tx, err := l.conn.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning like toggle: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM likes WHERE user_id = ? AND artifact_id = ?`, userID, artifactID)
	if err != nil {
		return false, fmt.Errorf("sqlite: removing like on %s: %w", artifactID, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	liked := removed == 0
	if liked {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO likes (user_id, artifact_id, created_at) VALUES (?, ?, ?)`,
			userID, artifactID, time.Now().UTC())
		if err != nil {
			return false, fmt.Errorf("sqlite: adding like on %s: %w", artifactID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing like toggle: %w", err)
	}
	return liked, nil
}

// Count returns the number of likes on an artifact.
func (l *LikeDB) Count(ctx context.Context, artifactID string) (int, error) {
	var n int
	if err := l.conn.GetContext(ctx, &n, `SELECT COUNT(*) FROM likes WHERE artifact_id = ?`, artifactID); err != nil {
		return 0, fmt.Errorf("sqlite: counting likes on %s: %w", artifactID, err)
	}
	return n, nil
}
