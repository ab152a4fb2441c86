package services

import (
	"errors"
	"fmt"
	"time"

	"shift_planner_backend/internal/models"
	"shift_planner_backend/internal/repositories"

	"github.com/google/uuid"
)

// --- Shift Change DTOs ---

// CreateChangeRequestRequest proposes swapping two confirmed shifts.
type CreateChangeRequestRequest struct {
	InitiatingShiftID uuid.UUID `json:"initiating_shift_id" binding:"required"`
	TargetShiftID     uuid.UUID `json:"target_shift_id" binding:"required"`
	Reason            *string   `json:"reason"`
}

// RespondToChangeRequest is the target member's decision.
type RespondToChangeRequest struct {
	Decision string `json:"action" binding:"required,oneof=ACCEPT REJECT"`
}

// ResolveChangeRequest is the manager's decision.
type ResolveChangeRequest struct {
	Decision string  `json:"action" binding:"required,oneof=APPROVE REJECT"`
	Notes    *string `json:"notes"`
}

const (
	decisionAccept  = "ACCEPT"
	decisionReject  = "REJECT"
	decisionApprove = "APPROVE"
)

// --- ShiftChangeService Interface ---

// ShiftChangeService runs the two-phase approval for swapping shifts between
// members: the target member accepts first, then a manager approves. The swap
// itself is re-validated and committed atomically by the registry at approval
// time, so stale requests are rejected instead of corrupting assignments.
type ShiftChangeService interface {
	Create(actorUserID uuid.UUID, req CreateChangeRequestRequest) (*models.ShiftChangeRequest, error)
	Respond(requestID, actorUserID uuid.UUID, req RespondToChangeRequest) (*models.ShiftChangeRequest, error)
	Resolve(requestID, actorUserID uuid.UUID, req ResolveChangeRequest) (*models.ShiftChangeRequest, error)
	Cancel(requestID, actorUserID uuid.UUID) (*models.ShiftChangeRequest, error)
	MyRequests(actorUserID uuid.UUID) ([]models.ShiftChangeRequest, error)
	PendingManagerRequests(actorUserID uuid.UUID) ([]models.ShiftChangeRequest, error)
}

type shiftChangeService struct {
	changeRepo repositories.ShiftChangeRepository
	shiftRepo  repositories.ShiftRepository
	memberRepo repositories.MemberRepository
	authRepo   repositories.AuthRepository
	registry   ShiftRegistryService
	authz      Authorizer
	notifier   Notifier
}

// NewShiftChangeService creates a new instance of ShiftChangeService.
func NewShiftChangeService(
	cr repositories.ShiftChangeRepository,
	sr repositories.ShiftRepository,
	mr repositories.MemberRepository,
	ar repositories.AuthRepository,
	registry ShiftRegistryService,
	authz Authorizer,
	notifier Notifier,
) ShiftChangeService {
	return &shiftChangeService{
		changeRepo: cr,
		shiftRepo:  sr,
		memberRepo: mr,
		authRepo:   ar,
		registry:   registry,
		authz:      authz,
		notifier:   notifier,
	}
}

func (s *shiftChangeService) memberForUser(actorUserID uuid.UUID) (*models.Member, error) {
	member, err := s.memberRepo.GetMemberByUserID(actorUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: no member linked to user %s", ErrMemberNotFound, actorUserID)
		}
		return nil, fmt.Errorf("failed to resolve member for user: %w", err)
	}
	return member, nil
}

func (s *shiftChangeService) loadRequest(requestID uuid.UUID) (*models.ShiftChangeRequest, error) {
	req, err := s.changeRepo.GetRequestByID(requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %s", ErrChangeRequestNotFound, requestID)
		}
		return nil, fmt.Errorf("failed to load change request: %w", err)
	}
	return req, nil
}

// Create opens a change request against another member's confirmed shift.
// Both shifts must be CONFIRMED, the initiator must own the initiating shift,
// and the two shifts must belong to two distinct members.
func (s *shiftChangeService) Create(actorUserID uuid.UUID, req CreateChangeRequestRequest) (*models.ShiftChangeRequest, error) {
	member, err := s.memberForUser(actorUserID)
	if err != nil {
		return nil, err
	}
	if req.InitiatingShiftID == req.TargetShiftID {
		return nil, fmt.Errorf("%w: cannot request a swap between a shift and itself", ErrInvalidTransition)
	}

	initShift, err := s.registry.GetShiftByID(req.InitiatingShiftID)
	if err != nil {
		return nil, err
	}
	targetShift, err := s.registry.GetShiftByID(req.TargetShiftID)
	if err != nil {
		return nil, err
	}

	today := time.Now().Truncate(24 * time.Hour)
	if initShift.ShiftDate.Before(today) || targetShift.ShiftDate.Before(today) {
		return nil, fmt.Errorf("%w: cannot swap shifts that have already occurred", ErrInvalidTransition)
	}

	if initShift.Status != models.ShiftStatusConfirmed {
		return nil, fmt.Errorf("%w: initiating shift %s is %s, expected CONFIRMED", ErrInvalidTransition, initShift.ID, initShift.Status)
	}
	if targetShift.Status != models.ShiftStatusConfirmed {
		return nil, fmt.Errorf("%w: target shift %s is %s, expected CONFIRMED", ErrInvalidTransition, targetShift.ID, targetShift.Status)
	}
	if initShift.MemberID == nil || *initShift.MemberID != member.ID {
		return nil, fmt.Errorf("%w: initiating shift is not assigned to the requesting member", ErrUnauthorized)
	}
	if targetShift.MemberID == nil {
		return nil, fmt.Errorf("%w: target shift has no assigned member", ErrInvalidTransition)
	}
	if *targetShift.MemberID == member.ID {
		return nil, fmt.Errorf("%w: both shifts are assigned to the same member", ErrInvalidTransition)
	}

	request := &models.ShiftChangeRequest{
		InitiatingShiftID:  initShift.ID,
		InitiatingMemberID: member.ID,
		TargetShiftID:      targetShift.ID,
		TargetMemberID:     *targetShift.MemberID,
		Status:             models.ChangeStatusPendingTarget,
		RequestReason:      req.Reason,
	}
	created, err := s.changeRepo.CreateRequest(nil, request)
	if err != nil {
		return nil, fmt.Errorf("failed to create change request: %w", err)
	}

	s.notifyMembers([]uuid.UUID{created.TargetMemberID},
		fmt.Sprintf("%s wants to swap shifts with you. Please accept or reject the request.", member.FullName()))
	return created, nil
}

// Respond records the target member's decision. ACCEPT moves the request to
// manager review; REJECT ends it. Retrying a decision that already landed
// returns the request unchanged.
func (s *shiftChangeService) Respond(requestID, actorUserID uuid.UUID, req RespondToChangeRequest) (*models.ShiftChangeRequest, error) {
	member, err := s.memberForUser(actorUserID)
	if err != nil {
		return nil, err
	}
	request, err := s.loadRequest(requestID)
	if err != nil {
		return nil, err
	}
	if request.TargetMemberID != member.ID {
		return nil, fmt.Errorf("%w: only the target member may respond to this request", ErrUnauthorized)
	}

	next := models.ChangeStatusPendingManager
	if req.Decision == decisionReject {
		next = models.ChangeStatusRejected
	}
	if request.Status == next {
		return request, nil
	}
	if request.Status != models.ChangeStatusPendingTarget {
		return nil, fmt.Errorf("%w: change request %s is %s, expected PENDING_TARGET_APPROVAL", ErrInvalidTransition, requestID, request.Status)
	}

	updated, err := s.changeRepo.UpdateStatus(requestID, models.ChangeStatusPendingTarget, next, nil)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			if updated != nil && updated.Status == next {
				return updated, nil
			}
			return nil, fmt.Errorf("%w: change request %s moved to %s concurrently", ErrInvalidTransition, requestID, currentStatus(updated))
		}
		return nil, fmt.Errorf("failed to update change request: %w", err)
	}

	if next == models.ChangeStatusPendingManager {
		s.notifyManagers(fmt.Sprintf("A shift change request from %s is awaiting manager approval.", requestInitiatorName(updated)))
	} else {
		s.notifyMembers([]uuid.UUID{updated.InitiatingMemberID}, "Your shift change request was rejected by the other member.")
	}
	return updated, nil
}

// Resolve records the manager's decision. REJECT is valid from either pending
// stage. APPROVE requires the target's prior acceptance and commits the swap
// through the registry before marking the request APPROVED; if either shift
// changed hands since the request was validated, the request is rejected with
// a note and ErrStaleOwnership is returned.
func (s *shiftChangeService) Resolve(requestID, actorUserID uuid.UUID, req ResolveChangeRequest) (*models.ShiftChangeRequest, error) {
	manager, err := s.authz.HasManagerCapability(actorUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check manager capability: %w", err)
	}
	if !manager {
		return nil, fmt.Errorf("%w: resolving a change request requires manager capability", ErrUnauthorized)
	}

	request, err := s.loadRequest(requestID)
	if err != nil {
		return nil, err
	}

	if req.Decision == decisionReject {
		return s.resolveReject(request, req.Notes)
	}
	return s.resolveApprove(request, req.Notes)
}

func (s *shiftChangeService) resolveReject(request *models.ShiftChangeRequest, notes *string) (*models.ShiftChangeRequest, error) {
	if request.Status == models.ChangeStatusRejected {
		return request, nil
	}
	if !request.Status.IsPending() {
		return nil, fmt.Errorf("%w: change request %s is already %s", ErrInvalidTransition, request.ID, request.Status)
	}

	updated, err := s.changeRepo.UpdateStatus(request.ID, request.Status, models.ChangeStatusRejected, notes)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			if updated != nil && updated.Status == models.ChangeStatusRejected {
				return updated, nil
			}
			return nil, fmt.Errorf("%w: change request %s moved to %s concurrently", ErrInvalidTransition, request.ID, currentStatus(updated))
		}
		return nil, fmt.Errorf("failed to reject change request: %w", err)
	}

	s.notifyMembers([]uuid.UUID{updated.InitiatingMemberID, updated.TargetMemberID},
		"Your shift change request was rejected by a manager.")
	return updated, nil
}

func (s *shiftChangeService) resolveApprove(request *models.ShiftChangeRequest, notes *string) (*models.ShiftChangeRequest, error) {
	if request.Status == models.ChangeStatusApproved {
		return request, nil
	}
	if request.Status != models.ChangeStatusPendingManager {
		return nil, fmt.Errorf("%w: change request %s is %s, expected PENDING_MANAGER_APPROVAL", ErrInvalidTransition, request.ID, request.Status)
	}

	err := s.registry.Swap(request.InitiatingShiftID, request.InitiatingMemberID, request.TargetShiftID, request.TargetMemberID)
	if err != nil {
		if errors.Is(err, ErrStaleOwnership) {
			note := "Automatically rejected: shift assignments changed before approval."
			rejected, rejErr := s.changeRepo.UpdateStatus(request.ID, models.ChangeStatusPendingManager, models.ChangeStatusRejected, &note)
			if rejErr != nil {
				rejected = request
			}
			s.notifyMembers([]uuid.UUID{request.InitiatingMemberID, request.TargetMemberID},
				"Your shift change request could not be approved because the shifts changed in the meantime.")
			return rejected, fmt.Errorf("%w: change request %s", ErrStaleOwnership, request.ID)
		}
		return nil, err
	}

	updated, err := s.changeRepo.UpdateStatus(request.ID, models.ChangeStatusPendingManager, models.ChangeStatusApproved, notes)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) && updated != nil && updated.Status == models.ChangeStatusApproved {
			return updated, nil
		}
		return nil, fmt.Errorf("failed to mark change request approved: %w", err)
	}

	s.notifyMembers([]uuid.UUID{updated.InitiatingMemberID, updated.TargetMemberID},
		"Your shift change request was approved. The shifts have been swapped.")
	return updated, nil
}

// Cancel withdraws a pending request. Only the initiator may cancel.
func (s *shiftChangeService) Cancel(requestID, actorUserID uuid.UUID) (*models.ShiftChangeRequest, error) {
	member, err := s.memberForUser(actorUserID)
	if err != nil {
		return nil, err
	}
	request, err := s.loadRequest(requestID)
	if err != nil {
		return nil, err
	}
	if request.InitiatingMemberID != member.ID {
		return nil, fmt.Errorf("%w: only the initiating member may cancel this request", ErrUnauthorized)
	}
	if request.Status == models.ChangeStatusCancelled {
		return request, nil
	}
	if !request.Status.IsPending() {
		return nil, fmt.Errorf("%w: change request %s is already %s", ErrInvalidTransition, requestID, request.Status)
	}

	updated, err := s.changeRepo.UpdateStatus(requestID, request.Status, models.ChangeStatusCancelled, nil)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			if updated != nil && updated.Status == models.ChangeStatusCancelled {
				return updated, nil
			}
			return nil, fmt.Errorf("%w: change request %s moved to %s concurrently", ErrInvalidTransition, requestID, currentStatus(updated))
		}
		return nil, fmt.Errorf("failed to cancel change request: %w", err)
	}

	s.notifyMembers([]uuid.UUID{updated.TargetMemberID},
		fmt.Sprintf("%s withdrew their shift change request.", member.FullName()))
	return updated, nil
}

func (s *shiftChangeService) MyRequests(actorUserID uuid.UUID) ([]models.ShiftChangeRequest, error) {
	member, err := s.memberForUser(actorUserID)
	if err != nil {
		return nil, err
	}
	requests, err := s.changeRepo.GetRequestsForMember(member.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list change requests: %w", err)
	}
	return requests, nil
}

// PendingManagerRequests lists requests awaiting manager approval.
func (s *shiftChangeService) PendingManagerRequests(actorUserID uuid.UUID) ([]models.ShiftChangeRequest, error) {
	manager, err := s.authz.HasManagerCapability(actorUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check manager capability: %w", err)
	}
	if !manager {
		return nil, fmt.Errorf("%w: listing pending approvals requires manager capability", ErrUnauthorized)
	}
	requests, err := s.changeRepo.GetRequestsByStatus(models.ChangeStatusPendingManager)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending change requests: %w", err)
	}
	return requests, nil
}

func (s *shiftChangeService) notifyMembers(memberIDs []uuid.UUID, message string) {
	userIDs, err := s.memberRepo.UserIDsForMembers(memberIDs)
	if err != nil || len(userIDs) == 0 {
		return
	}
	s.notifier.Notify(userIDs, message)
}

func (s *shiftChangeService) notifyManagers(message string) {
	userIDs, err := s.authRepo.ListManagerUserIDs()
	if err != nil || len(userIDs) == 0 {
		return
	}
	s.notifier.Notify(userIDs, message)
}

func currentStatus(req *models.ShiftChangeRequest) models.ChangeRequestStatus {
	if req == nil {
		return models.ChangeRequestStatus("UNKNOWN")
	}
	return req.Status
}

func requestInitiatorName(req *models.ShiftChangeRequest) string {
	if req.InitiatingMember != nil {
		return req.InitiatingMember.FullName()
	}
	return "a team member"
}
