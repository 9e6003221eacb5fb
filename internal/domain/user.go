package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role is a staff role. The set is closed: every switch over Role must list
// all constants so that a new role forces each call site to be revisited.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleAttorney     Role = "ATTORNEY"
	RoleParalegal    Role = "PARALEGAL"
	RoleSupportStaff Role = "SUPPORT_STAFF"
	RoleClientDept   Role = "CLIENT_DEPT"
)

// Roles lists every known role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleAttorney, RoleParalegal, RoleSupportStaff, RoleClientDept}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAttorney, RoleParalegal, RoleSupportStaff, RoleClientDept:
		return true
	default:
		return false
	}
}

// ParseRole converts a raw role string, rejecting unknown values.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // argon2id, empty for SSO-only accounts
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	DepartmentID *uuid.UUID `json:"departmentId,omitempty"`
	SlackUserID  string     `json:"slackUserId,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	List(ctx context.Context) ([]*User, error)
	// FindActiveByRole returns the first active user holding role, ordered by creation time.
	FindActiveByRole(ctx context.Context, role Role) (*User, error)
}
