package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"shift_planner_backend/internal/models"
	"shift_planner_backend/internal/services"
	"shift_planner_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ScheduleHandler exposes the shift registry and solver endpoints.
type ScheduleHandler struct {
	registryService services.ShiftRegistryService
	solverService   services.SolverService
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(rs services.ShiftRegistryService, ss services.SolverService) *ScheduleHandler {
	return &ScheduleHandler{registryService: rs, solverService: ss}
}

// AssignShiftRequest is the body for manual assignment.
type AssignShiftRequest struct {
	MemberID string `json:"member_id" binding:"required,uuid"`
}

// AssignShift handles assigning an open shift to a member.
func (h *ScheduleHandler) AssignShift(c *gin.Context) {
	shiftID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req AssignShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "AssignShift: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}
	memberID, err := utils.ParseUUID(req.MemberID)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid member_id.", err.Error()))
		return
	}

	result, err := h.registryService.Assign(shiftID, memberID)
	if err != nil {
		utils.LogError(err, "AssignShift: Error from registryService.Assign")
		if errors.Is(err, services.ErrShiftNotFound) || errors.Is(err, services.ErrMemberNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, err.Error(), err.Error()))
		} else if errors.Is(err, services.ErrQualificationMismatch) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), err.Error()))
		} else if errors.Is(err, services.ErrInvalidTransition) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to assign shift.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetSchedule handles fetching shifts within a date range.
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	startStr := c.Query("startDate")
	endStr := c.Query("endDate")
	if startStr == "" || endStr == "" {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "startDate and endDate query parameters are required.", ""))
		return
	}
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid startDate format. Use YYYY-MM-DD.", err.Error()))
		return
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid endDate format. Use YYYY-MM-DD.", err.Error()))
		return
	}

	var status *models.ShiftStatus
	if statusStr := c.Query("status"); statusStr != "" {
		if !models.IsValidShiftStatus(statusStr) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid status filter.", "Expected OPEN, BIDDING or CONFIRMED."))
			return
		}
		s := models.ShiftStatus(statusStr)
		status = &s
	}

	shifts, err := h.registryService.GetSchedule(start, end, status)
	if err != nil {
		utils.LogError(err, "GetSchedule: Error from registryService.GetSchedule")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch schedule.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, shifts)
}

// GetShiftByID handles fetching a single shift.
func (h *ScheduleHandler) GetShiftByID(c *gin.Context) {
	shiftID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	shift, err := h.registryService.GetShiftByID(shiftID)
	if err != nil {
		utils.LogError(err, "GetShiftByID: Error from registryService.GetShiftByID")
		if errors.Is(err, services.ErrShiftNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Shift not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch shift.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, shift)
}

// StartSolve handles submitting a scheduling window to the solver.
func (h *ScheduleHandler) StartSolve(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid or missing year parameter.", ""))
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid or missing month parameter.", ""))
		return
	}

	job, err := h.solverService.StartSolve(actorID, year, month)
	if err != nil {
		utils.LogError(err, "StartSolve: Error from solverService.StartSolve")
		if errors.Is(err, services.ErrUnauthorized) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, err.Error(), err.Error()))
		} else if errors.Is(err, services.ErrJobAlreadyRunning) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, err.Error(), err.Error()))
		} else if errors.Is(err, services.ErrSolverUnavailable) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusServiceUnavailable, utils.ErrCodeServiceUnavailable, err.Error(), err.Error()))
		} else if errors.Is(err, services.ErrInvalidTransition) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to start solver run.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// GetSolveStatus handles polling a solver run.
func (h *ScheduleHandler) GetSolveStatus(c *gin.Context) {
	problemID := c.Param("problemId")
	if problemID == "" {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "problemId parameter is required.", ""))
		return
	}

	job, err := h.solverService.PollStatus(problemID)
	if err != nil {
		if errors.Is(err, services.ErrSolverJobNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Solver job not found.", err.Error()))
		} else {
			utils.LogError(err, "GetSolveStatus: Error from solverService.PollStatus")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch solver status.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, job)
}
