package models

import "time"

// Report statuses. A report only moves forward: pending is the initial
// state and the rest are transitions applied by an admin.
const (
	ReportPending   = "pending"
	ReportResolved  = "resolved"
	ReportDismissed = "dismissed"
	ReportEscalated = "escalated"
)

// Report categories.
const (
	ReportHarassment    = "harassment"
	ReportSpam          = "spam"
	ReportInappropriate = "inappropriate_content"
	ReportHateSpeech    = "hate_speech"
	ReportOther         = "other"
)

// Report is a user-filed moderation report. Strictly append/transition;
// the client never deletes one.
type Report struct {
	ID              string     `db:"id" json:"id"`
	ReportedBy      string     `db:"reported_by" json:"reported_by"`
	ReportedUser    string     `db:"reported_user" json:"reported_user"`
	ReportedMessage *string    `db:"reported_message" json:"reported_message,omitempty"`
	Reason          string     `db:"reason" json:"reason"`
	Category        string     `db:"category" json:"category"`
	Status          string     `db:"status" json:"status"`
	Action          *string    `db:"action" json:"action,omitempty"`
	ActionBy        *string    `db:"action_by" json:"action_by,omitempty"`
	ActionTimestamp *time.Time `db:"action_timestamp" json:"action_timestamp,omitempty"`
	AdminNotes      *string    `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// ValidReportStatus reports whether s is a known report status.
func ValidReportStatus(s string) bool {
	switch s {
	case ReportPending, ReportResolved, ReportDismissed, ReportEscalated:
		return true
	}
	return false
}

// ValidReportCategory reports whether c is a known report category.
func ValidReportCategory(c string) bool {
	switch c {
	case ReportHarassment, ReportSpam, ReportInappropriate, ReportHateSpeech, ReportOther:
		return true
	}
	return false
}
