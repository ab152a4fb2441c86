package services

import (
	"errors"
	"fmt"
	"time"

	"shift_planner_backend/internal/models"
	"shift_planner_backend/internal/repositories"

	"github.com/google/uuid"
)

// TransitionResult reports the outcome of a registry transition. Applied is
// false when the requested effect had already landed (a safe retry): the
// current state is returned without a second side effect.
type TransitionResult struct {
	Shift   *models.ScheduledShift `json:"shift"`
	Applied bool                   `json:"applied"`
}

// ShiftRegistryService is the sole writer of shift status and assignee. Every
// other component commits occupancy changes through it, so concurrent callers
// observe linearizable shift state; atomicity itself lives in the
// repository's compare-and-set transactions.
type ShiftRegistryService interface {
	Assign(shiftID, memberID uuid.UUID) (*TransitionResult, error)
	OpenForBidding(shiftID uuid.UUID) (*models.ScheduledShift, error)
	ConfirmFromBid(shiftID, memberID, bidID uuid.UUID) (*TransitionResult, error)
	Swap(shiftAID, memberAID, shiftBID, memberBID uuid.UUID) error
	GetShiftByID(shiftID uuid.UUID) (*models.ScheduledShift, error)
	GetSchedule(startDate, endDate time.Time, status *models.ShiftStatus) ([]models.ScheduledShift, error)
	GetOpenBiddingShifts() ([]models.ScheduledShift, error)
}

type shiftRegistryService struct {
	shiftRepo  repositories.ShiftRepository
	memberRepo repositories.MemberRepository
	notifier   Notifier
}

// NewShiftRegistryService creates a new instance of ShiftRegistryService.
func NewShiftRegistryService(
	sr repositories.ShiftRepository,
	mr repositories.MemberRepository,
	notifier Notifier,
) ShiftRegistryService {
	return &shiftRegistryService{
		shiftRepo:  sr,
		memberRepo: mr,
		notifier:   notifier,
	}
}

// Assign confirms an OPEN shift for memberID. The member must hold the
// shift's required qualification if one is set. Retrying an assign that
// already landed returns the current state with Applied=false.
func (s *shiftRegistryService) Assign(shiftID, memberID uuid.UUID) (*TransitionResult, error) {
	if _, err := s.memberRepo.GetMemberByID(memberID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %s", ErrMemberNotFound, memberID)
		}
		return nil, fmt.Errorf("failed to validate member for assignment: %w", err)
	}

	shift, err := s.shiftRepo.GetShiftByID(shiftID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %s", ErrShiftNotFound, shiftID)
		}
		return nil, fmt.Errorf("failed to load shift for assignment: %w", err)
	}

	if shift.RequiredQualificationID != nil {
		qualified, err := s.memberRepo.HasQualification(memberID, *shift.RequiredQualificationID)
		if err != nil {
			return nil, fmt.Errorf("failed to check qualification: %w", err)
		}
		if !qualified {
			return nil, fmt.Errorf("%w: member %s lacks qualification %s",
				ErrQualificationMismatch, memberID, *shift.RequiredQualificationID)
		}
	}

	updated, err := s.shiftRepo.Assign(shiftID, memberID)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			if updated != nil && updated.Status == models.ShiftStatusConfirmed &&
				updated.MemberID != nil && *updated.MemberID == memberID {
				return &TransitionResult{Shift: updated, Applied: false}, nil
			}
			return nil, s.invalidTransition(updated, shiftID, models.ShiftStatusOpen)
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %s", ErrShiftNotFound, shiftID)
		}
		return nil, fmt.Errorf("failed to assign shift: %w", err)
	}

	s.notifyMembers([]uuid.UUID{memberID},
		fmt.Sprintf("You have been assigned to the %s shift on %s (%s-%s).",
			shiftLocationName(updated), updated.ShiftDate.Format("2006-01-02"), updated.StartTime, updated.EndTime))
	return &TransitionResult{Shift: updated, Applied: true}, nil
}

// OpenForBidding vacates a CONFIRMED shift onto the bidding market. No
// notification is emitted; bids are solicited passively.
func (s *shiftRegistryService) OpenForBidding(shiftID uuid.UUID) (*models.ScheduledShift, error) {
	shift, err := s.shiftRepo.OpenForBidding(shiftID)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			if shift != nil && shift.Status == models.ShiftStatusBidding {
				// Retry of an open that already landed.
				return shift, nil
			}
			return nil, s.invalidTransition(shift, shiftID, models.ShiftStatusConfirmed)
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %s", ErrShiftNotFound, shiftID)
		}
		return nil, fmt.Errorf("failed to open shift for bidding: %w", err)
	}
	return shift, nil
}

// ConfirmFromBid confirms a BIDDING shift for memberID and atomically settles
// the bid set: bidID becomes AWARDED, every other ACTIVE bid becomes LOST.
func (s *shiftRegistryService) ConfirmFromBid(shiftID, memberID, bidID uuid.UUID) (*TransitionResult, error) {
	updated, err := s.shiftRepo.ConfirmFromBid(shiftID, memberID, bidID)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			if updated != nil && updated.Status == models.ShiftStatusConfirmed &&
				updated.MemberID != nil && *updated.MemberID == memberID {
				return &TransitionResult{Shift: updated, Applied: false}, nil
			}
			if updated != nil {
				return nil, s.invalidTransition(updated, shiftID, models.ShiftStatusBidding)
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %s", ErrShiftNotFound, shiftID)
		}
		return nil, fmt.Errorf("failed to confirm shift from bid: %w", err)
	}
	return &TransitionResult{Shift: updated, Applied: true}, nil
}

// Swap exchanges the assignees of two CONFIRMED shifts, both-or-neither.
// Ownership is re-checked under the row locks at commit time; a failed check
// surfaces as ErrStaleOwnership.
func (s *shiftRegistryService) Swap(shiftAID, memberAID, shiftBID, memberBID uuid.UUID) error {
	err := s.shiftRepo.Swap(shiftAID, memberAID, shiftBID, memberBID)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return fmt.Errorf("%w: %v", ErrStaleOwnership, err)
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: one of shifts %s, %s", ErrShiftNotFound, shiftAID, shiftBID)
		}
		return fmt.Errorf("failed to swap shifts: %w", err)
	}
	return nil
}

func (s *shiftRegistryService) GetShiftByID(shiftID uuid.UUID) (*models.ScheduledShift, error) {
	shift, err := s.shiftRepo.GetShiftByID(shiftID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %s", ErrShiftNotFound, shiftID)
		}
		return nil, fmt.Errorf("failed to get shift by ID: %w", err)
	}
	return shift, nil
}

func (s *shiftRegistryService) GetSchedule(startDate, endDate time.Time, status *models.ShiftStatus) ([]models.ScheduledShift, error) {
	shifts, err := s.shiftRepo.GetShifts(models.ScheduleFilters{StartDate: &startDate, EndDate: &endDate, Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return shifts, nil
}

func (s *shiftRegistryService) GetOpenBiddingShifts() ([]models.ScheduledShift, error) {
	status := models.ShiftStatusBidding
	shifts, err := s.shiftRepo.GetShifts(models.ScheduleFilters{Status: &status})
	if err != nil {
		return nil, fmt.Errorf("failed to get open bidding shifts: %w", err)
	}
	return shifts, nil
}

// invalidTransition builds the expected-vs-actual error for a failed
// compare-and-set.
func (s *shiftRegistryService) invalidTransition(current *models.ScheduledShift, shiftID uuid.UUID, expected models.ShiftStatus) error {
	actual := models.ShiftStatus("UNKNOWN")
	if current != nil {
		actual = current.Status
	}
	return fmt.Errorf("%w: shift %s is %s, expected %s", ErrInvalidTransition, shiftID, actual, expected)
}

// notifyMembers resolves member ids to their linked users and emits.
func (s *shiftRegistryService) notifyMembers(memberIDs []uuid.UUID, message string) {
	userIDs, err := s.memberRepo.UserIDsForMembers(memberIDs)
	if err != nil || len(userIDs) == 0 {
		return
	}
	s.notifier.Notify(userIDs, message)
}

func shiftLocationName(shift *models.ScheduledShift) string {
	if shift != nil && shift.Location != nil {
		return shift.Location.Name
	}
	return ""
}
