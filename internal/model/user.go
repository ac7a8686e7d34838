// Package model defines the data structures shared by the server layers.
package model

import "time"

// User is a registered account. Email is unique across users.
//
// PasswordHash is never serialised; handlers expose users through Public().
// Accounts created via Google sign-in carry a hash of a random password
// nobody knows, so password login is effectively disabled for them.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is the projection returned by /login, /google-login and /users/me.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Public returns the client-facing projection of u.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}
