// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is the stored account. RefreshToken is the single refresh-token slot:
// nil when no session is active, otherwise the only refresh token that will
// be accepted for this user.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	// Salt is hex encoded. It also salts the per-user key derivation.
	Salt         string
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the public view of a User.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Profile strips credentials, the refresh-token slot and timestamps.
func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserUpdate lists the fields to change. Nil pointers are left untouched.
// ClearRefreshToken sets the slot to NULL and wins over RefreshToken.
type UserUpdate struct {
	Name              *string
	Email             *string
	RefreshToken      *string
	ClearRefreshToken bool
}

// Empty reports whether the update would change nothing.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.RefreshToken == nil && !u.ClearRefreshToken
}
