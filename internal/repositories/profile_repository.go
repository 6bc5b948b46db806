package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"anonchat/internal/models"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrUsernameTaken   = errors.New("username already taken")
)

// ProfileRepository abstracts user profile persistence.
type ProfileRepository interface {
	Create(ctx context.Context, username, avatarURL string) (models.Profile, error)
	GetByID(ctx context.Context, id string) (models.Profile, error)
	GetByUsername(ctx context.Context, username string) (models.Profile, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	List(ctx context.Context) ([]models.Profile, error)
	UpdateUsername(ctx context.Context, id, username string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	SetPresence(ctx context.Context, id string, isOnline bool, lastSeen time.Time) error
	SetBanned(ctx context.Context, id string, banned bool) error
	Delete(ctx context.Context, id string) error
}

// ProfileRepo is a sqlx implementation of ProfileRepository.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo constructs a ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// Create inserts a new profile with a generated id. A duplicate username
// maps to ErrUsernameTaken so callers can surface it as a validation error.
func (r *ProfileRepo) Create(ctx context.Context, username, avatarURL string) (models.Profile, error) {
	var p models.Profile
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO profiles (id, username, avatar_url, is_online, last_seen)
         VALUES ($1, $2, $3, TRUE, NOW())
         RETURNING id, username, avatar_url, is_online, last_seen, banned, created_at`,
		uuid.NewString(), username, avatarURL).StructScan(&p)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.Profile{}, ErrUsernameTaken
		}
		return models.Profile{}, err
	}
	return p, nil
}

// GetByID fetches a profile by id.
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (models.Profile, error) {
	var p models.Profile
	err := r.db.GetContext(ctx, &p, `SELECT * FROM profiles WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrProfileNotFound
	}
	return p, err
}

// GetByUsername fetches a profile by its display username.
func (r *ProfileRepo) GetByUsername(ctx context.Context, username string) (models.Profile, error) {
	var p models.Profile
	err := r.db.GetContext(ctx, &p, `SELECT * FROM profiles WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrProfileNotFound
	}
	return p, err
}

// UsernameTaken reports whether a username is currently in use.
func (r *ProfileRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var taken bool
	err := r.db.GetContext(ctx, &taken, `SELECT EXISTS(SELECT 1 FROM profiles WHERE username=$1)`, username)
	return taken, err
}

// List returns all profiles, most recent first.
func (r *ProfileRepo) List(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.SelectContext(ctx, &profiles, `SELECT * FROM profiles ORDER BY created_at DESC`)
	return profiles, err
}

// UpdateUsername changes the display username, preserving uniqueness.
func (r *ProfileRepo) UpdateUsername(ctx context.Context, id, username string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE profiles SET username=$2 WHERE id=$1`, id, username)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrUsernameTaken
		}
		return err
	}
	return requireRow(res, ErrProfileNotFound)
}

// UpdateAvatar replaces the avatar reference.
func (r *ProfileRepo) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE profiles SET avatar_url=$2 WHERE id=$1`, id, avatarURL)
	if err != nil {
		return err
	}
	return requireRow(res, ErrProfileNotFound)
}

// SetPresence updates the durable online flag and last-seen timestamp.
func (r *ProfileRepo) SetPresence(ctx context.Context, id string, isOnline bool, lastSeen time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET is_online=$2, last_seen=$3 WHERE id=$1`, id, isOnline, lastSeen)
	return err
}

// SetBanned flips the ban flag on a profile.
func (r *ProfileRepo) SetBanned(ctx context.Context, id string, banned bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE profiles SET banned=$2 WHERE id=$1`, id, banned)
	if err != nil {
		return err
	}
	return requireRow(res, ErrProfileNotFound)
}

// Delete removes a profile and everything cascading from it.
func (r *ProfileRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, ErrProfileNotFound)
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
