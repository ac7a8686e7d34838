package model

import "time"

// Build is a user's weapon/artifact setup for one character.
//
// Artifact and Notes are nullable. Author is only populated by the public
// listing, where it carries the owner's display name.
type Build struct {
	ID            string       `json:"id"`
	UserID        string       `json:"UserId"`
	CharacterName string       `json:"character_name"`
	Weapon        string       `json:"weapon"`
	Artifact      *string      `json:"artifact"`
	Notes         *string      `json:"notes"`
	IsPublic      bool         `json:"isPublic"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	Author        *BuildAuthor `json:"User,omitempty"`
}

// BuildAuthor is the owner projection embedded in public builds.
type BuildAuthor struct {
	Name string `json:"name"`
}
