package services

import (
	"errors"
	"fmt"

	"shift_planner_backend/internal/models"
	"shift_planner_backend/internal/repositories"

	"github.com/google/uuid"
)

// --- Bidding DTOs ---

// PlaceBidRequest carries the optional note a bidder attaches.
type PlaceBidRequest struct {
	Notes *string `json:"notes"`
}

// AwardResult reports an award outcome. Applied is false when the award had
// already landed and the call was a safe retry.
type AwardResult struct {
	Shift   *models.ScheduledShift `json:"shift"`
	Bid     *models.ShiftBid       `json:"bid"`
	Applied bool                   `json:"applied"`
}

// --- BiddingService Interface ---

// BiddingService manages bids against shifts the registry has opened for
// bidding. Award exclusivity is delegated to the registry: only one
// ConfirmFromBid per shift can succeed.
type BiddingService interface {
	PlaceBid(shiftID, actorUserID uuid.UUID, req PlaceBidRequest) (*models.ShiftBid, error)
	RetractBid(bidID, actorUserID uuid.UUID) (*models.ShiftBid, error)
	Award(shiftID, bidID, actorUserID uuid.UUID) (*AwardResult, error)
	ListBidsForShift(shiftID uuid.UUID) ([]models.ShiftBid, error)
	ListMyBids(actorUserID uuid.UUID) ([]models.ShiftBid, error)
}

type biddingService struct {
	bidRepo    repositories.BidRepository
	memberRepo repositories.MemberRepository
	registry   ShiftRegistryService
	authz      Authorizer
	notifier   Notifier
}

// NewBiddingService creates a new instance of BiddingService.
func NewBiddingService(
	br repositories.BidRepository,
	mr repositories.MemberRepository,
	registry ShiftRegistryService,
	authz Authorizer,
	notifier Notifier,
) BiddingService {
	return &biddingService{
		bidRepo:    br,
		memberRepo: mr,
		registry:   registry,
		authz:      authz,
		notifier:   notifier,
	}
}

// memberForUser resolves the acting user to their member record.
func (s *biddingService) memberForUser(actorUserID uuid.UUID) (*models.Member, error) {
	member, err := s.memberRepo.GetMemberByUserID(actorUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: no member linked to user %s", ErrMemberNotFound, actorUserID)
		}
		return nil, fmt.Errorf("failed to resolve member for user: %w", err)
	}
	return member, nil
}

// PlaceBid creates an ACTIVE bid on a BIDDING shift. The shift's prior
// assignee may not bid on the shift they vacated, and a member may hold at
// most one ACTIVE bid per shift (enforced by a partial unique index, so two
// racing bids cannot both land).
func (s *biddingService) PlaceBid(shiftID, actorUserID uuid.UUID, req PlaceBidRequest) (*models.ShiftBid, error) {
	member, err := s.memberForUser(actorUserID)
	if err != nil {
		return nil, err
	}

	shift, err := s.registry.GetShiftByID(shiftID)
	if err != nil {
		return nil, err
	}
	if shift.Status != models.ShiftStatusBidding {
		return nil, fmt.Errorf("%w: shift %s is %s, expected BIDDING", ErrInvalidTransition, shiftID, shift.Status)
	}
	if shift.PriorMemberID != nil && *shift.PriorMemberID == member.ID {
		return nil, fmt.Errorf("%w: member %s vacated this shift and cannot bid on it", ErrInvalidTransition, member.ID)
	}

	bid := &models.ShiftBid{
		ShiftID:  shiftID,
		MemberID: member.ID,
		Status:   models.BidStatusActive,
		Notes:    req.Notes,
	}
	// The repository re-checks the shift status under a row lock, so a bid
	// that validated against a BIDDING shift cannot land after a concurrent
	// award settled the bid set.
	created, err := s.bidRepo.CreateBid(bid)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: member %s on shift %s", ErrDuplicateBid, member.ID, shiftID)
		}
		if errors.Is(err, repositories.ErrConflict) {
			return nil, fmt.Errorf("%w: shift %s left BIDDING before the bid landed", ErrInvalidTransition, shiftID)
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %s", ErrShiftNotFound, shiftID)
		}
		return nil, fmt.Errorf("failed to create bid: %w", err)
	}
	created.Member = member
	return created, nil
}

// RetractBid withdraws the actor's own ACTIVE bid.
func (s *biddingService) RetractBid(bidID, actorUserID uuid.UUID) (*models.ShiftBid, error) {
	member, err := s.memberForUser(actorUserID)
	if err != nil {
		return nil, err
	}

	bid, err := s.bidRepo.GetBidByID(bidID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %s", ErrBidNotFound, bidID)
		}
		return nil, fmt.Errorf("failed to load bid: %w", err)
	}
	if bid.MemberID != member.ID {
		return nil, fmt.Errorf("%w: bid %s belongs to another member", ErrUnauthorized, bidID)
	}

	retracted, err := s.bidRepo.Retract(bidID)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			if retracted != nil && retracted.Status == models.BidStatusRetracted {
				// Retry of a retract that already landed.
				return retracted, nil
			}
			actual := models.BidStatus("UNKNOWN")
			if retracted != nil {
				actual = retracted.Status
			}
			return nil, fmt.Errorf("%w: bid %s is %s, expected ACTIVE", ErrInvalidTransition, bidID, actual)
		}
		return nil, fmt.Errorf("failed to retract bid: %w", err)
	}
	return retracted, nil
}

// Award settles the market for one shift: the chosen bid is AWARDED, every
// other ACTIVE bid is LOST, and the shift is confirmed for the winning
// member, all in one registry transaction. Exactly one of two concurrent
// awards succeeds; retrying an award that already landed returns the existing
// AWARDED bid without a second side effect.
func (s *biddingService) Award(shiftID, bidID, actorUserID uuid.UUID) (*AwardResult, error) {
	manager, err := s.authz.HasManagerCapability(actorUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check manager capability: %w", err)
	}
	if !manager {
		return nil, fmt.Errorf("%w: awarding a bid requires manager capability", ErrUnauthorized)
	}

	bid, err := s.bidRepo.GetBidByID(bidID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: ID %s", ErrBidNotFound, bidID)
		}
		return nil, fmt.Errorf("failed to load bid: %w", err)
	}
	if bid.ShiftID != shiftID {
		return nil, fmt.Errorf("%w: bid %s is not a bid on shift %s", ErrInvalidTransition, bidID, shiftID)
	}

	// Competing bidders are captured before the award settles so the losers
	// can be notified afterwards.
	activeBids, err := s.bidRepo.GetBidsForShift(shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids for award: %w", err)
	}

	result, err := s.registry.ConfirmFromBid(shiftID, bid.MemberID, bidID)
	if err != nil {
		return nil, err
	}

	// The settled market has exactly one AWARDED bid per shift; read it back
	// rather than trusting the pre-award snapshot.
	awarded, err := s.bidRepo.GetAwardedBidForShift(shiftID)
	if err != nil {
		awarded = bid
	}

	if result.Applied {
		s.notifyAwardOutcome(awarded, activeBids, result.Shift)
	}
	return &AwardResult{Shift: result.Shift, Bid: awarded, Applied: result.Applied}, nil
}

func (s *biddingService) notifyAwardOutcome(awarded *models.ShiftBid, bids []models.ShiftBid, shift *models.ScheduledShift) {
	when := fmt.Sprintf("%s (%s-%s)", shift.ShiftDate.Format("2006-01-02"), shift.StartTime, shift.EndTime)

	if userIDs, err := s.memberRepo.UserIDsForMembers([]uuid.UUID{awarded.MemberID}); err == nil && len(userIDs) > 0 {
		s.notifier.Notify(userIDs, fmt.Sprintf("Your bid was awarded: you are now assigned to the shift on %s.", when))
	}

	losers := []uuid.UUID{}
	for _, b := range bids {
		if b.ID != awarded.ID && b.Status == models.BidStatusActive {
			losers = append(losers, b.MemberID)
		}
	}
	if len(losers) == 0 {
		return
	}
	if userIDs, err := s.memberRepo.UserIDsForMembers(losers); err == nil && len(userIDs) > 0 {
		s.notifier.Notify(userIDs, fmt.Sprintf("The shift on %s was awarded to another member.", when))
	}
}

func (s *biddingService) ListBidsForShift(shiftID uuid.UUID) ([]models.ShiftBid, error) {
	bids, err := s.bidRepo.GetBidsForShift(shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids for shift: %w", err)
	}
	return bids, nil
}

func (s *biddingService) ListMyBids(actorUserID uuid.UUID) ([]models.ShiftBid, error) {
	member, err := s.memberForUser(actorUserID)
	if err != nil {
		return nil, err
	}
	bids, err := s.bidRepo.GetBidsForMember(member.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list member bids: %w", err)
	}
	return bids, nil
}
