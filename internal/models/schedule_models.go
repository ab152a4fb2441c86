package models

import (
	"time"

	"github.com/google/uuid"
)

// ShiftStatus is the closed set of occupancy states for a scheduled shift.
type ShiftStatus string

const (
	ShiftStatusOpen      ShiftStatus = "OPEN"
	ShiftStatusBidding   ShiftStatus = "BIDDING"
	ShiftStatusConfirmed ShiftStatus = "CONFIRMED"
)

// IsValidShiftStatus reports whether s is a known shift status.
func IsValidShiftStatus(s string) bool {
	switch ShiftStatus(s) {
	case ShiftStatusOpen, ShiftStatusBidding, ShiftStatusConfirmed:
		return true
	}
	return false
}

// Location represents a work site shifts are scheduled at.
type Location struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ShiftTemplate is the pattern a shift was generated from (e.g. "Night Duty").
type ShiftTemplate struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ScheduledShift is one schedulable work slot. Status and MemberID move
// together: CONFIRMED always has an assignee, OPEN/BIDDING never do.
type ScheduledShift struct {
	ID                      uuid.UUID   `json:"id"`
	ShiftDate               time.Time   `json:"shift_date" db:"shift_date"`
	StartTime               string      `json:"start_time" db:"start_time"`
	EndTime                 string      `json:"end_time" db:"end_time"`
	LocationID              uuid.UUID   `json:"location_id" db:"location_id"`
	TemplateID              uuid.UUID   `json:"template_id" db:"template_id"`
	RequiredQualificationID *uuid.UUID  `json:"required_qualification_id,omitempty" db:"required_qualification_id"`
	Status                  ShiftStatus `json:"status" db:"status"`
	MemberID                *uuid.UUID  `json:"member_id,omitempty" db:"member_id"`
	// PriorMemberID remembers who vacated the shift when it was opened for
	// bidding; the prior assignee may not bid on their own vacated shift.
	PriorMemberID *uuid.UUID `json:"prior_member_id,omitempty" db:"prior_member_id"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`

	Location              *Location      `json:"location,omitempty"`
	Member                *Member        `json:"member,omitempty"`
	Template              *ShiftTemplate `json:"shift_template,omitempty"`
	RequiredQualification *Qualification `json:"required_qualification,omitempty"`
}

// ScheduleFilters narrows schedule queries.
type ScheduleFilters struct {
	StartDate *time.Time
	EndDate   *time.Time
	Status    *ShiftStatus
	MemberID  *uuid.UUID
}
