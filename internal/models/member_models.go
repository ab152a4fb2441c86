package models

import (
	"time"

	"github.com/google/uuid"
)

// Qualification is a certification a member can hold and a shift can require.
type Qualification struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Member is a schedulable worker. UserID links the member to a login account;
// members without one exist (imported rosters) and simply receive no
// notifications.
type Member struct {
	ID             uuid.UUID       `json:"id"`
	UserID         *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	FirstName      string          `json:"first_name" db:"first_name"`
	LastName       string          `json:"last_name" db:"last_name"`
	PhoneNumber    *string         `json:"phone_number,omitempty" db:"phone_number"`
	EmployeeID     *string         `json:"employee_id,omitempty" db:"employee_id"`
	IsActive       bool            `json:"is_active" db:"is_active"`
	Qualifications []Qualification `json:"qualifications,omitempty"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// FullName joins the member's names for display in responses.
func (m *Member) FullName() string {
	return m.FirstName + " " + m.LastName
}
