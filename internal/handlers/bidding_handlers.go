package handlers

import (
	"errors"
	"net/http"

	"shift_planner_backend/internal/services"
	"shift_planner_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// BiddingHandler exposes the bidding market endpoints.
type BiddingHandler struct {
	biddingService  services.BiddingService
	registryService services.ShiftRegistryService
}

// NewBiddingHandler creates a new BiddingHandler.
func NewBiddingHandler(bs services.BiddingService, rs services.ShiftRegistryService) *BiddingHandler {
	return &BiddingHandler{biddingService: bs, registryService: rs}
}

// OpenShiftForBidding handles releasing a confirmed shift back to the market.
func (h *BiddingHandler) OpenShiftForBidding(c *gin.Context) {
	shiftID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	shift, err := h.registryService.OpenForBidding(shiftID)
	if err != nil {
		utils.LogError(err, "OpenShiftForBidding: Error from registryService.OpenForBidding")
		if errors.Is(err, services.ErrShiftNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Shift not found.", err.Error()))
		} else if errors.Is(err, services.ErrInvalidTransition) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to open shift for bidding.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, shift)
}

// GetOpenShifts handles listing all shifts currently accepting bids.
func (h *BiddingHandler) GetOpenShifts(c *gin.Context) {
	shifts, err := h.registryService.GetOpenBiddingShifts()
	if err != nil {
		utils.LogError(err, "GetOpenShifts: Error from registryService.GetOpenBiddingShifts")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch open shifts.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, shifts)
}

// PlaceBid handles a member bidding on an open shift.
func (h *BiddingHandler) PlaceBid(c *gin.Context) {
	shiftID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	// The note is optional, an empty body is accepted.
	var req services.PlaceBidRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.LogError(err, "PlaceBid: Failed to bind JSON")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
			return
		}
	}

	bid, err := h.biddingService.PlaceBid(shiftID, actorID, req)
	if err != nil {
		utils.LogError(err, "PlaceBid: Error from biddingService.PlaceBid")
		if errors.Is(err, services.ErrShiftNotFound) || errors.Is(err, services.ErrMemberNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, err.Error(), err.Error()))
		} else if errors.Is(err, services.ErrDuplicateBid) || errors.Is(err, services.ErrInvalidTransition) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to place bid.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, bid)
}

// GetBidsForShift handles listing all bids on one shift.
func (h *BiddingHandler) GetBidsForShift(c *gin.Context) {
	shiftID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	bids, err := h.biddingService.ListBidsForShift(shiftID)
	if err != nil {
		utils.LogError(err, "GetBidsForShift: Error from biddingService.ListBidsForShift")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch bids.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, bids)
}

// GetMyBids handles listing the authenticated member's bids.
func (h *BiddingHandler) GetMyBids(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	bids, err := h.biddingService.ListMyBids(actorID)
	if err != nil {
		utils.LogError(err, "GetMyBids: Error from biddingService.ListMyBids")
		if errors.Is(err, services.ErrMemberNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch bids.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, bids)
}

// RetractBid handles a member withdrawing their active bid.
func (h *BiddingHandler) RetractBid(c *gin.Context) {
	bidID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	bid, err := h.biddingService.RetractBid(bidID, actorID)
	if err != nil {
		utils.LogError(err, "RetractBid: Error from biddingService.RetractBid")
		if errors.Is(err, services.ErrBidNotFound) || errors.Is(err, services.ErrMemberNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, err.Error(), err.Error()))
		} else if errors.Is(err, services.ErrUnauthorized) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, err.Error(), err.Error()))
		} else if errors.Is(err, services.ErrInvalidTransition) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to retract bid.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, bid)
}

// AwardBid handles a manager awarding a shift to one bid.
func (h *BiddingHandler) AwardBid(c *gin.Context) {
	shiftID, ok := uuidParam(c, "shiftId")
	if !ok {
		return
	}
	bidID, ok := uuidParam(c, "bidId")
	if !ok {
		return
	}
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.biddingService.Award(shiftID, bidID, actorID)
	if err != nil {
		utils.LogError(err, "AwardBid: Error from biddingService.Award")
		if errors.Is(err, services.ErrBidNotFound) || errors.Is(err, services.ErrShiftNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, err.Error(), err.Error()))
		} else if errors.Is(err, services.ErrUnauthorized) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, err.Error(), err.Error()))
		} else if errors.Is(err, services.ErrInvalidTransition) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to award bid.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, result)
}
