package models

import "time"

// Notification categories.
const (
	NotificationMessage     = "message"
	NotificationCall        = "call"
	NotificationSystem      = "system"
	NotificationAdminAction = "admin_action"
)

// Notification is a per-user event record. Only IsRead mutates after
// creation; notifications are pruned only by a full data clear.
type Notification struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Type       string    `db:"type" json:"type"`
	Title      string    `db:"title" json:"title"`
	Message    string    `db:"message" json:"message"`
	FromUser   *string   `db:"from_user" json:"from_user,omitempty"`
	ActionType *string   `db:"action_type" json:"action_type,omitempty"`
	ReportID   *string   `db:"report_id" json:"report_id,omitempty"`
	IsRead     bool      `db:"is_read" json:"is_read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
