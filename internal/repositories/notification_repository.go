package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"anonchat/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationInput carries the fields for a new notification.
type NotificationInput struct {
	UserID     string
	Type       string
	Title      string
	Message    string
	FromUser   *string
	ActionType *string
	ReportID   *string
}

// NotificationRepository abstracts notification persistence.
type NotificationRepository interface {
	Create(ctx context.Context, in NotificationInput) (models.Notification, error)
	ListForUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID string) error
}

// NotificationRepo is a sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Create inserts a notification.
func (r *NotificationRepo) Create(ctx context.Context, in NotificationInput) (models.Notification, error) {
	var n models.Notification
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO notifications (id, user_id, type, title, message, from_user, action_type, report_id)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
         RETURNING id, user_id, type, title, message, from_user, action_type, report_id, is_read, created_at`,
		uuid.NewString(), in.UserID, in.Type, in.Title, in.Message, in.FromUser, in.ActionType, in.ReportID).
		StructScan(&n)
	return n, err
}

// ListForUser returns the user's notifications, newest first.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	var list []models.Notification
	err := r.db.SelectContext(ctx, &list,
		`SELECT * FROM notifications WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	return list, err
}

// MarkRead flips the read flag; the only mutation notifications allow.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read=TRUE WHERE id=$1`, notificationID)
	if err != nil {
		return err
	}
	return requireRow(res, ErrNotificationNotFound)
}
