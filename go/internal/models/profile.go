package models

import "time"

// Profile represents a player identity resolved from the external messenger
// account. The external id is stable and doubles as the player id on
// sessions.
type Profile struct {
	ID        int64     `json:"id"`
	Username  *string   `json:"username,omitempty"`
	FullName  string    `json:"full_name"`
	Coins     int64     `json:"coins"`
	IsPremium bool      `json:"is_premium"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
