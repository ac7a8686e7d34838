package model

import "time"

// Favorite marks a character as favourited by its owner.
//
// The JSON names mirror the wire format the web client already consumes
// ("UserId", "character_name").
type Favorite struct {
	ID            string    `json:"id"`
	UserID        string    `json:"UserId"`
	CharacterName string    `json:"character_name"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
