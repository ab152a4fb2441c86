package handlers

import (
	"errors"
	"net/http"

	"shift_planner_backend/internal/services"
	"shift_planner_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ShiftChangeHandler exposes the shift exchange workflow endpoints.
type ShiftChangeHandler struct {
	changeService services.ShiftChangeService
}

// NewShiftChangeHandler creates a new ShiftChangeHandler.
func NewShiftChangeHandler(cs services.ShiftChangeService) *ShiftChangeHandler {
	return &ShiftChangeHandler{changeService: cs}
}

func respondChangeError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, services.ErrChangeRequestNotFound) || errors.Is(err, services.ErrShiftNotFound) || errors.Is(err, services.ErrMemberNotFound) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, err.Error(), err.Error()))
	} else if errors.Is(err, services.ErrUnauthorized) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, err.Error(), err.Error()))
	} else if errors.Is(err, services.ErrStaleOwnership) || errors.Is(err, services.ErrInvalidTransition) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, err.Error(), err.Error()))
	} else {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, fallback, "Internal error"))
	}
}

// CreateChangeRequest handles a member proposing a shift swap.
func (h *ShiftChangeHandler) CreateChangeRequest(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateChangeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateChangeRequest: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	request, err := h.changeService.Create(actorID, req)
	if err != nil {
		utils.LogError(err, "CreateChangeRequest: Error from changeService.Create")
		respondChangeError(c, err, "Failed to create change request.")
		return
	}
	c.JSON(http.StatusCreated, request)
}

// GetMyChangeRequests handles listing requests the member initiated or is
// targeted by.
func (h *ShiftChangeHandler) GetMyChangeRequests(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	requests, err := h.changeService.MyRequests(actorID)
	if err != nil {
		utils.LogError(err, "GetMyChangeRequests: Error from changeService.MyRequests")
		respondChangeError(c, err, "Failed to fetch change requests.")
		return
	}
	c.JSON(http.StatusOK, requests)
}

// GetPendingChangeRequests handles listing requests awaiting manager approval.
func (h *ShiftChangeHandler) GetPendingChangeRequests(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	requests, err := h.changeService.PendingManagerRequests(actorID)
	if err != nil {
		utils.LogError(err, "GetPendingChangeRequests: Error from changeService.PendingManagerRequests")
		respondChangeError(c, err, "Failed to fetch pending change requests.")
		return
	}
	c.JSON(http.StatusOK, requests)
}

// RespondToChangeRequest handles the target member's accept or reject.
func (h *ShiftChangeHandler) RespondToChangeRequest(c *gin.Context) {
	requestID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.RespondToChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "RespondToChangeRequest: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	request, err := h.changeService.Respond(requestID, actorID, req)
	if err != nil {
		utils.LogError(err, "RespondToChangeRequest: Error from changeService.Respond")
		respondChangeError(c, err, "Failed to respond to change request.")
		return
	}
	c.JSON(http.StatusOK, request)
}

// ResolveChangeRequest handles the manager's approve or reject.
func (h *ShiftChangeHandler) ResolveChangeRequest(c *gin.Context) {
	requestID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.ResolveChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "ResolveChangeRequest: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	request, err := h.changeService.Resolve(requestID, actorID, req)
	if err != nil {
		utils.LogError(err, "ResolveChangeRequest: Error from changeService.Resolve")
		respondChangeError(c, err, "Failed to resolve change request.")
		return
	}
	c.JSON(http.StatusOK, request)
}

// CancelChangeRequest handles the initiator withdrawing a pending request.
func (h *ShiftChangeHandler) CancelChangeRequest(c *gin.Context) {
	requestID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	request, err := h.changeService.Cancel(requestID, actorID)
	if err != nil {
		utils.LogError(err, "CancelChangeRequest: Error from changeService.Cancel")
		respondChangeError(c, err, "Failed to cancel change request.")
		return
	}
	c.JSON(http.StatusOK, request)
}
