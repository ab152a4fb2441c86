package models

import (
	"time"

	"github.com/google/uuid"
)

// ChangeRequestStatus is the closed set of states for a shift change request.
type ChangeRequestStatus string

const (
	ChangeStatusPendingTarget  ChangeRequestStatus = "PENDING_TARGET_APPROVAL"
	ChangeStatusPendingManager ChangeRequestStatus = "PENDING_MANAGER_APPROVAL"
	ChangeStatusApproved       ChangeRequestStatus = "APPROVED"
	ChangeStatusRejected       ChangeRequestStatus = "REJECTED"
	ChangeStatusCancelled      ChangeRequestStatus = "CANCELLED"
)

// IsPending reports whether the request can still be acted on.
func (s ChangeRequestStatus) IsPending() bool {
	return s == ChangeStatusPendingTarget || s == ChangeStatusPendingManager
}

// IsTerminal reports whether no further transition is defined for the request.
func (s ChangeRequestStatus) IsTerminal() bool {
	return !s.IsPending()
}

// ShiftChangeRequest is a proposed swap between two CONFIRMED shifts owned by
// two distinct members. It advances through target approval, then manager
// approval, and the approved swap itself is committed atomically by the
// registry.
type ShiftChangeRequest struct {
	ID                 uuid.UUID           `json:"id"`
	InitiatingShiftID  uuid.UUID           `json:"initiating_shift_id" db:"initiating_shift_id"`
	InitiatingMemberID uuid.UUID           `json:"initiating_member_id" db:"initiating_member_id"`
	TargetShiftID      uuid.UUID           `json:"target_shift_id" db:"target_shift_id"`
	TargetMemberID     uuid.UUID           `json:"target_member_id" db:"target_member_id"`
	Status             ChangeRequestStatus `json:"status" db:"status"`
	RequestReason      *string             `json:"request_reason,omitempty" db:"request_reason"`
	ResolutionNotes    *string             `json:"resolution_notes,omitempty" db:"resolution_notes"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" db:"updated_at"`

	InitiatingShift  *ScheduledShift `json:"initiating_shift,omitempty"`
	TargetShift      *ScheduledShift `json:"target_shift,omitempty"`
	InitiatingMember *Member         `json:"initiating_member,omitempty"`
	TargetMember     *Member         `json:"target_member,omitempty"`
}
