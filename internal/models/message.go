package models

import "time"

// Message content types.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeAudio = "audio"
)

// Message represents a chat message. Exactly one of ChatRoomID or
// PrivateChatID is set; once stored, only IsRead may change.
type Message struct {
	ID            string    `db:"id" json:"id"`
	ChatRoomID    *string   `db:"chat_room_id" json:"chat_room_id,omitempty"`
	PrivateChatID *string   `db:"private_chat_id" json:"private_chat_id,omitempty"`
	SenderID      string    `db:"sender_id" json:"sender_id"`
	SenderName    string    `db:"sender_name" json:"sender_name"`
	Content       string    `db:"content" json:"content"`
	Type          string    `db:"message_type" json:"message_type"`
	IsRead        bool      `db:"is_read" json:"is_read"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ValidMessageType reports whether t is a known message content type.
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeAudio:
		return true
	}
	return false
}
