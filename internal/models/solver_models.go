package models

import (
	"time"

	"github.com/google/uuid"
)

// SolverStatus mirrors the state vocabulary reported by the external
// optimization solver.
type SolverStatus string

const (
	SolverStatusScheduled  SolverStatus = "SOLVING_SCHEDULED"
	SolverStatusActive     SolverStatus = "SOLVING_ACTIVE"
	SolverStatusFeasible   SolverStatus = "FEASIBLE"
	SolverStatusUnfeasible SolverStatus = "UNFEASIBLE"
	SolverStatusBroken     SolverStatus = "BROKEN"
	SolverStatusNotSolving SolverStatus = "NOT_SOLVING"
)

// IsTerminal reports whether the solver will make no further progress on a
// job in this state.
func (s SolverStatus) IsTerminal() bool {
	switch s {
	case SolverStatusFeasible, SolverStatusUnfeasible, SolverStatusBroken, SolverStatusNotSolving:
		return true
	}
	return false
}

// SolverAssignment is one shift occupancy proposed by the solver.
type SolverAssignment struct {
	ShiftID  uuid.UUID `json:"shift_id"`
	MemberID uuid.UUID `json:"member_id"`
}

// ReplaySummary counts the outcome of replaying a solver result through the
// registry. Each assignment is applied independently, so a partial outcome is
// a valid one.
type ReplaySummary struct {
	Assignments    int `json:"assignments"`
	Applied        int `json:"applied"`
	AlreadyApplied int `json:"already_applied"`
	Failed         int `json:"failed"`
}

// SolverJob is the in-memory handle for one external optimization run. Jobs
// live only for their polling window and are never persisted.
type SolverJob struct {
	ProblemID   string         `json:"problem_id"`
	Year        int            `json:"year"`
	Month       int            `json:"month"`
	Status      SolverStatus   `json:"status"`
	RequestedBy uuid.UUID      `json:"requested_by"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  *time.Time     `json:"finished_at,omitempty"`
	Replay      *ReplaySummary `json:"replay,omitempty"`
}
