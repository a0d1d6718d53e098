// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database. It lives inside the Go binary and stores
// everything in a single file. No separate database server to run. The
// artifact store is three small tables (users, artifacts, likes), which is
// squarely in SQLite's comfort zone.
//
// DRIVER AND QUERY LAYER:
//   - modernc.org/sqlite is a pure Go translation of SQLite (no CGo), registered
//     with database/sql under the name "sqlite".
//   - github.com/jmoiron/sqlx sits on top of database/sql and scans rows into
//     structs using their `db:"..."` tags, so a SELECT with twelve columns is a
//     single Get/Select call instead of a twelve-argument Scan.
//
// MIGRATIONS:
// The schema lives in migrations/*.sql, embedded into the binary with go:embed
// and applied by golang-migrate. The schema_migrations table records which
// versions ran, so New() is safe to call on an existing database.
//
// STORES:
// DB owns the connection pool. Users(), Artifacts() and Likes() return thin
// store types that each implement one repository interface.
package sqlite

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// driverName is the name modernc.org/sqlite registers with database/sql.
const driverName = "sqlite"

func init() {
	// sqlx only knows "sqlite3" out of the box; tell it that our driver
	// also uses ? placeholders.
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// DB wraps a sqlx connection pool and hands out the per-table stores.
type DB struct {
	conn *sqlx.DB
}

// New opens the database at dbPath and applies every pending migration.
//
// dbPath examples:
//   - "data/artifacts.db"  → file-based database (persistent)
//   - ":memory:"           → in-memory database (tests; lost on close)
func New(dbPath string) (*DB, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Open opens the database without touching the schema. The migrate command
// uses it so it can move the schema in either direction.
func Open(dbPath string) (*DB, error) {
	conn, err := sqlx.Open(driverName, buildDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate, empty database, so the
	// pool must never hold more than one.
	if isMemory(dbPath) {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress. The setting is
	// stored in the database file, so one Exec is enough for the whole pool.
	if !isMemory(dbPath) {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
		}
	}

	return &DB{conn: conn}, nil
}

// buildDSN appends per-connection pragmas. foreign_keys and busy_timeout are
// connection-scoped in SQLite, so they go in the DSN where the driver applies
// them to every new pooled connection.
func buildDSN(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func isMemory(dbPath string) bool {
	return dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Users returns the store backing repository.UserRepository.
func (db *DB) Users() *UserDB { return &UserDB{conn: db.conn} }

// Artifacts returns the store backing repository.ArtifactRepository.
func (db *DB) Artifacts() *ArtifactDB { return &ArtifactDB{conn: db.conn} }

// Likes returns the store backing repository.LikeRepository.
func (db *DB) Likes() *LikeDB { return &LikeDB{conn: db.conn} }

// =========================================================================
// MIGRATIONS
// =========================================================================

// migrator builds a golang-migrate instance over the embedded SQL files and
// the pool we already own.
//
// NOTE: the returned *migrate.Migrate must NOT be closed. Closing it closes
// the database driver, and the sqlite driver closes the *sql.DB it was given
// via WithInstance, which is our pool.
func (db *DB) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("loading embedded migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db.conn.DB, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("creating migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}

// MigrateUp applies all pending migrations. Already being up to date is not an error.
func (db *DB) MigrateUp() error {
	m, err := db.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back the given number of migrations (all of them when steps <= 0).
func (db *DB) MigrateDown(steps int) error {
	m, err := db.migrator()
	if err != nil {
		return err
	}

	if steps > 0 {
		err = m.Steps(-steps)
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rolling back migrations: %w", err)
	}
	return nil
}

// MigrationVersion reports the current schema version. A database with no
// migrations applied returns version 0.
func (db *DB) MigrationVersion() (version uint, dirty bool, err error) {
	m, err := db.migrator()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// =========================================================================
// ERROR TRANSLATION
// =========================================================================

// uniqueViolation reports whether err is a UNIQUE (or PRIMARY KEY) constraint
// failure and, if so, which column tripped it ("username", "email", ...).
//
// SQLite reports the failing column in the message:
//
//	UNIQUE constraint failed: users.username
func uniqueViolation(err error) (column string, ok bool) {
	var se *sqlitedrv.Error
	if errors.As(err, &se) {
		code := se.Code()
		if code != sqlite3.SQLITE_CONSTRAINT_UNIQUE && code != sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return "", false
		}
	} else if !strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return "", false
	}

	msg := err.Error()
	if i := strings.LastIndex(msg, "failed: "); i >= 0 {
		msg = msg[i+len("failed: "):]
	}
	if i := strings.Index(msg, " ("); i >= 0 {
		msg = msg[:i]
	}
	msg = strings.TrimSpace(strings.SplitN(msg, ",", 2)[0])
	if i := strings.LastIndex(msg, "."); i >= 0 {
		msg = msg[i+1:]
	}
	return msg, true
}
