// Package model defines the data structures used throughout the application.
package model

import "time"

// Roles. Every account is created as a client; there is no route that
// promotes a user, so other roles only come from direct database edits.
const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

// User represents a registered account.
//
// WHY PasswordHash HAS json:"-":
// The bcrypt hash must never leave the server, not even by accident when a
// handler writes a whole User. The "-" tag makes encoding/json skip it.
//
// APIKey is the user's own key for the literature-search service. It is
// stored as-is; masking it for display is left to the client.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	APIKey       string    `json:"apiKey"    db:"api_key"`
	Role         string    `json:"role"      db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// UserSummary is the public projection of a User embedded in projects and
// documents (owner, collaborators, document authors).
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Summary returns the public projection of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}
