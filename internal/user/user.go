// Package user defines the authentication account used throughout the
// application for login, registration and session gating.
package user

import "time"

// User represents a registered account.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID.
	ID string `json:"id"`

	Username string `json:"username"`
	Email    string `json:"email"`

	// PasswordHash is a bcrypt hash; the plaintext is never stored.
	PasswordHash string `json:"password_hash"`

	// IsActive is false for accounts that may not log in.
	IsActive bool `json:"is_active"`

	DateJoined time.Time `json:"date_joined"`
}
