package services

import "errors"

// Engine error taxonomy. Every rejected command resolves to one of these
// sentinels; handlers map them to HTTP codes and callers branch with
// errors.Is.
var (
	// ErrInvalidTransition means the operation is not valid for the entity's
	// current status. Recoverable: the caller should refresh state.
	ErrInvalidTransition = errors.New("operation not valid for current status")

	// ErrStaleOwnership means a shift's ownership changed between validation
	// and commit. Recoverable: refresh and retry or abandon.
	ErrStaleOwnership = errors.New("shift ownership changed since the request was validated")

	// ErrDuplicateBid means the member already holds an active bid on the shift.
	ErrDuplicateBid = errors.New("member already has an active bid on this shift")

	// ErrQualificationMismatch means the member lacks the shift's required
	// qualification.
	ErrQualificationMismatch = errors.New("member does not hold the required qualification")

	// ErrJobAlreadyRunning means a solver job is already active for the
	// requested scheduling window.
	ErrJobAlreadyRunning = errors.New("a solver job is already running for this scheduling window")

	// ErrSolverUnavailable means the external solver could not be reached.
	// Transient; distinct from a job that legitimately reports BROKEN.
	ErrSolverUnavailable = errors.New("external solver is unavailable")

	// ErrUnauthorized means the actor lacks the required capability or is not
	// the entity's owner.
	ErrUnauthorized = errors.New("actor lacks the required capability")

	ErrShiftNotFound         = errors.New("scheduled shift not found")
	ErrBidNotFound           = errors.New("shift bid not found")
	ErrChangeRequestNotFound = errors.New("shift change request not found")
	ErrNotificationNotFound  = errors.New("notification not found")
	ErrMemberNotFound        = errors.New("member not found")
	ErrSolverJobNotFound     = errors.New("solver job not found")
)
