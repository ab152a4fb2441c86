package models

import (
	"time"

	"github.com/google/uuid"
)

// BidStatus is the closed set of states for a shift bid.
type BidStatus string

const (
	BidStatusActive    BidStatus = "ACTIVE"
	BidStatusAwarded   BidStatus = "AWARDED"
	BidStatusLost      BidStatus = "LOST"
	BidStatusRetracted BidStatus = "RETRACTED"
)

// IsTerminal reports whether no further transition is defined for the bid.
func (s BidStatus) IsTerminal() bool {
	return s != BidStatusActive
}

// ShiftBid is a member's claim of interest in a BIDDING shift. At most one
// ACTIVE bid exists per (shift, member); at most one bid per shift is ever
// AWARDED.
type ShiftBid struct {
	ID        uuid.UUID `json:"id"`
	ShiftID   uuid.UUID `json:"shift_id" db:"shift_id"`
	MemberID  uuid.UUID `json:"member_id" db:"member_id"`
	Status    BidStatus `json:"status" db:"status"`
	Notes     *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Member *Member         `json:"member,omitempty"`
	Shift  *ScheduledShift `json:"shift,omitempty"`
}
