package models

import (
	"time"

	"github.com/lib/pq"
)

// Admin roles.
const (
	AdminRoleSuper     = "super_admin"
	AdminRoleModerator = "moderator"
	AdminRoleSupport   = "support"
)

// AdminUser is an operator account for the admin console. Credentials
// are verified server-side; the password hash never leaves the server.
type AdminUser struct {
	ID           string         `db:"id" json:"id"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Role         string         `db:"role" json:"role"`
	Permissions  pq.StringArray `db:"permissions" json:"permissions"`
	IsActive     bool           `db:"is_active" json:"is_active"`
	LastLogin    *time.Time     `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// HasPermission reports whether the admin's role or permission list
// grants the named action. Super admins are granted everything.
func (a AdminUser) HasPermission(action string) bool {
	if a.Role == AdminRoleSuper {
		return true
	}
	for _, p := range a.Permissions {
		if p == action {
			return true
		}
	}
	return false
}
