package models

import "time"

// User is a Farcaster identity known to the app. Keyed by fid; profile
// fields are refreshed on every sign-in.
type User struct {
	Fid         string    `json:"fid"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	PfpURL      string    `json:"pfp_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
