package models

import "time"

// Profile represents an anonymous user identity.
type Profile struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	AvatarURL string    `db:"avatar_url" json:"avatar_url"`
	IsOnline  bool      `db:"is_online" json:"is_online"`
	LastSeen  time.Time `db:"last_seen" json:"last_seen"`
	Banned    bool      `db:"banned" json:"banned"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PresenceState is the ephemeral record a client tracks on the shared
// presence channel. It is never persisted; the channel's member snapshot
// is rebuilt from these every session.
type PresenceState struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
	OnlineAt  time.Time `json:"online_at"`
	LastSeen  time.Time `json:"last_seen"`
}
