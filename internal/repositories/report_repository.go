package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"anonchat/internal/models"
)

var ErrReportNotFound = errors.New("report not found")

// ReportInput carries the fields of a new user-filed report.
type ReportInput struct {
	ReportedBy      string
	ReportedUser    string
	ReportedMessage *string
	Reason          string
	Category        string
}

// ReportUpdate carries an admin status transition.
type ReportUpdate struct {
	Status     string
	Action     *string
	ActionBy   string
	AdminNotes *string
}

// ReportRepository abstracts moderation report persistence. Reports are
// append/transition only; nothing here deletes.
type ReportRepository interface {
	Create(ctx context.Context, in ReportInput) (models.Report, error)
	Get(ctx context.Context, reportID string) (models.Report, error)
	ListForReporter(ctx context.Context, userID string) ([]models.Report, error)
	ListAll(ctx context.Context) ([]models.Report, error)
	UpdateStatus(ctx context.Context, reportID string, update ReportUpdate) (models.Report, error)
}

// ReportRepo is a sqlx implementation of ReportRepository.
type ReportRepo struct {
	db *sqlx.DB
}

// NewReportRepo constructs a ReportRepo.
func NewReportRepo(db *sqlx.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

// Create files a new report in the pending state.
func (r *ReportRepo) Create(ctx context.Context, in ReportInput) (models.Report, error) {
	var rep models.Report
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO reports (id, reported_by, reported_user, reported_message, reason, category, status)
         VALUES ($1, $2, $3, $4, $5, $6, 'pending')
         RETURNING *`,
		uuid.NewString(), in.ReportedBy, in.ReportedUser, in.ReportedMessage, in.Reason, in.Category).
		StructScan(&rep)
	return rep, err
}

// Get fetches a report by id.
func (r *ReportRepo) Get(ctx context.Context, reportID string) (models.Report, error) {
	var rep models.Report
	err := r.db.GetContext(ctx, &rep, `SELECT * FROM reports WHERE id=$1`, reportID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Report{}, ErrReportNotFound
	}
	return rep, err
}

// ListForReporter returns reports filed by the given user, newest first.
func (r *ReportRepo) ListForReporter(ctx context.Context, userID string) ([]models.Report, error) {
	var reps []models.Report
	err := r.db.SelectContext(ctx, &reps,
		`SELECT * FROM reports WHERE reported_by=$1 ORDER BY created_at DESC`, userID)
	return reps, err
}

// ListAll returns every report for the admin console, newest first.
func (r *ReportRepo) ListAll(ctx context.Context) ([]models.Report, error) {
	var reps []models.Report
	err := r.db.SelectContext(ctx, &reps, `SELECT * FROM reports ORDER BY created_at DESC`)
	return reps, err
}

// UpdateStatus applies an admin transition with its action metadata.
func (r *ReportRepo) UpdateStatus(ctx context.Context, reportID string, update ReportUpdate) (models.Report, error) {
	var rep models.Report
	err := r.db.QueryRowxContext(ctx,
		`UPDATE reports SET status=$2, action=$3, action_by=$4, action_timestamp=$5, admin_notes=$6
         WHERE id=$1 RETURNING *`,
		reportID, update.Status, update.Action, update.ActionBy, time.Now().UTC(), update.AdminNotes).
		StructScan(&rep)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Report{}, ErrReportNotFound
	}
	return rep, err
}
