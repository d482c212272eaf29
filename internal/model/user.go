package model

import "time"

// User represents an account as stored in the `users` table.  Username and
// Email are pointers because rows created before the username column existed
// (legacy records) may carry NULL; every record created by registration has
// both.  PasswordHash never leaves the service layer.
type User struct {
	ID           uint64
	FirstName    *string
	LastName     *string
	Username     *string // unique, lowercased, trimmed; NULL only for legacy rows
	Email        *string // unique, lowercased, trimmed
	PasswordHash string  // bcrypt
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasUsername reports whether the record has a non-empty username.
func (u User) HasUsername() bool { return u.Username != nil && *u.Username != "" }

// UsernameOrEmpty returns the username or "" for legacy rows.
func (u User) UsernameOrEmpty() string {
	if u.Username == nil {
		return ""
	}
	return *u.Username
}

// EmailOrEmpty returns the email or "" when absent.
func (u User) EmailOrEmpty() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}
