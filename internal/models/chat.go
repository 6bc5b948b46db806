package models

import "time"

// PrivateChat represents a private conversation between exactly two users.
// Participants are stored in normalized order (lower id first) so the
// unordered pair is unique at the database level.
type PrivateChat struct {
	ID           string    `db:"id" json:"id"`
	Participant1 string    `db:"participant_1" json:"participant_1"`
	Participant2 string    `db:"participant_2" json:"participant_2"`
	BlockedBy    *string   `db:"blocked_by" json:"blocked_by,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	LastActivity time.Time `db:"last_activity" json:"last_activity"`
}

// HasParticipant reports whether userID is one of the two participants.
func (c PrivateChat) HasParticipant(userID string) bool {
	return c.Participant1 == userID || c.Participant2 == userID
}

// Blocked reports whether either side has blocked the conversation.
func (c PrivateChat) Blocked() bool {
	return c.BlockedBy != nil && *c.BlockedBy != ""
}

// ChatView is the directory view of a private chat for one user:
// the chat row enriched with denormalized participant profile info
// and the unread count derived for the requesting user.
type ChatView struct {
	PrivateChat
	Participant1Username string `db:"participant_1_username" json:"participant_1_username"`
	Participant1Avatar   string `db:"participant_1_avatar" json:"participant_1_avatar"`
	Participant2Username string `db:"participant_2_username" json:"participant_2_username"`
	Participant2Avatar   string `db:"participant_2_avatar" json:"participant_2_avatar"`
	UnreadCount          int    `db:"unread_count" json:"unread_count"`
}

// Partner returns the id, username and avatar of the other participant.
func (v ChatView) Partner(selfID string) (string, string, string) {
	if v.Participant1 == selfID {
		return v.Participant2, v.Participant2Username, v.Participant2Avatar
	}
	return v.Participant1, v.Participant1Username, v.Participant1Avatar
}
