package models

import (
	"time"

	"github.com/google/uuid"
)

// Role names used for authorization. Admin and Manager both carry the manager
// capability; Member is the default for workers.
const (
	RoleAdmin   = "Admin"
	RoleManager = "Manager"
	RoleMember  = "Member"
)

// User represents a login account.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"` // '-' means don't send in JSON response
	Email        *string    `json:"email,omitempty" db:"email"`
	FullName     *string    `json:"full_name,omitempty" db:"full_name"`
	RoleID       *uuid.UUID `json:"role_id,omitempty" db:"role_id"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	Role         *Role      `json:"role,omitempty"` // For joining with Role
}

// HasManagerCapability reports whether the user may perform manager-only
// operations (award bids, resolve change requests, start solver runs).
func (u *User) HasManagerCapability() bool {
	if u.Role == nil {
		return false
	}
	return u.Role.Name == RoleAdmin || u.Role.Name == RoleManager
}

// Role represents a user role.
type Role struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
