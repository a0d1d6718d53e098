package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"
	"github.com/sakif/artifact-cms/internal/apperror"
	"github.com/sakif/artifact-cms/internal/model"
	"github.com/sakif/artifact-cms/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB stores accounts in the users table.
type UserDB struct {
	conn *sqlx.DB
}

const userColumns = `id, username, email, password_hash, github_id, created_at`

// Create inserts a new user, assigning its ID and CreatedAt.
//
// Username and email are UNIQUE in the schema. Rather than checking first
// and inserting second (two users could race between the two statements),
// we let the INSERT fail and translate SQLite's constraint error into an
// apperror.Conflict naming the column that clashed.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()

	_, err := u.conn.NamedExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (:id, :username, :email, :password_hash, :github_id, :created_at)`,
		user,
	)
	if err != nil {
		if column, ok := uniqueViolation(err); ok {
			return conflictFor(column)
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}
	return nil
}

func conflictFor(column string) error {
	switch column {
	case "username":
		return apperror.Conflict("username", "username already exists")
	case "email":
		return apperror.Conflict("email", "email already exists")
	case "github_id":
		return apperror.Conflict("github", "github account already linked")
	default:
		return apperror.Conflict(column, "user already exists")
	}
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return u.getOne(ctx, "id", id, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByUsername is used by password login.
func (u *UserDB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return u.getOne(ctx, "username", username, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

// GetByGitHubID finds the account linked to a GitHub identity.
func (u *UserDB) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return u.getOne(ctx, "github_id", fmt.Sprint(githubID), `SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID)
}

func (u *UserDB) getOne(ctx context.Context, key, value, query string, arg any) (*model.User, error) {
	var user model.User
	if err := u.conn.GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s %q: %w", key, value, err)
	}
	return &user, nil
}
