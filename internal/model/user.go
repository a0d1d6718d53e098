// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
//
// The `json:"..."` tags control the HTTP representation and the `db:"..."`
// tags let sqlx map result columns onto fields by name.
package model

import "time"

// User is a registered account.
//
// PasswordHash is never serialised: the `json:"-"` tag drops it from every
// response. It is empty for accounts created through GitHub sign-in, which
// makes password login impossible for them (bcrypt rejects an empty hash).
//
// GitHubID is a pointer because the column is nullable: most accounts are
// local username/password accounts with no GitHub identity attached.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	GitHubID     *int64    `json:"-"         db:"github_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
