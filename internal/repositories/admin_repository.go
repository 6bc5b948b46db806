package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"anonchat/internal/models"
)

var (
	ErrAdminNotFound      = errors.New("admin not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// AdminRepository abstracts admin console accounts. Password verification
// happens here so hashes never cross a repository boundary.
type AdminRepository interface {
	VerifyPassword(ctx context.Context, email, password string) (models.AdminUser, error)
	GetActiveByID(ctx context.Context, id string) (models.AdminUser, error)
	TouchLastLogin(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.AdminUser, error)
	Create(ctx context.Context, email, password, role string, permissions []string) (models.AdminUser, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// AdminRepo is a sqlx implementation of AdminRepository.
type AdminRepo struct {
	db *sqlx.DB
}

// NewAdminRepo constructs an AdminRepo.
func NewAdminRepo(db *sqlx.DB) *AdminRepo {
	return &AdminRepo{db: db}
}

// VerifyPassword checks credentials against the stored bcrypt hash and
// returns the account only when it is active. Missing account and wrong
// password are indistinguishable to the caller.
func (r *AdminRepo) VerifyPassword(ctx context.Context, email, password string) (models.AdminUser, error) {
	var admin models.AdminUser
	err := r.db.GetContext(ctx, &admin,
		`SELECT * FROM admin_users WHERE email=$1 AND is_active=TRUE`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AdminUser{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.AdminUser{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return models.AdminUser{}, ErrInvalidCredentials
	}
	return admin, nil
}

// GetActiveByID fetches an active admin account.
func (r *AdminRepo) GetActiveByID(ctx context.Context, id string) (models.AdminUser, error) {
	var admin models.AdminUser
	err := r.db.GetContext(ctx, &admin,
		`SELECT * FROM admin_users WHERE id=$1 AND is_active=TRUE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AdminUser{}, ErrAdminNotFound
	}
	return admin, err
}

// TouchLastLogin records a successful sign-in time.
func (r *AdminRepo) TouchLastLogin(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE admin_users SET last_login=NOW() WHERE id=$1`, id)
	return err
}

// List returns all admin accounts.
func (r *AdminRepo) List(ctx context.Context) ([]models.AdminUser, error) {
	var admins []models.AdminUser
	err := r.db.SelectContext(ctx, &admins, `SELECT * FROM admin_users ORDER BY created_at ASC`)
	return admins, err
}

// Create inserts a new admin account with a bcrypt-hashed password.
func (r *AdminRepo) Create(ctx context.Context, email, password, role string, permissions []string) (models.AdminUser, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.AdminUser{}, err
	}
	var admin models.AdminUser
	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO admin_users (id, email, password_hash, role, permissions)
         VALUES ($1, $2, $3, $4, $5) RETURNING *`,
		uuid.NewString(), email, string(hash), role, pq.StringArray(permissions)).
		StructScan(&admin)
	return admin, err
}

// SetActive enables or disables an account.
func (r *AdminRepo) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE admin_users SET is_active=$2 WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	return requireRow(res, ErrAdminNotFound)
}
