package handlers

import (
	"errors"
	"net/http"

	"shift_planner_backend/internal/services"
	"shift_planner_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// MemberHandler exposes the member directory read endpoints.
type MemberHandler struct {
	directoryService services.DirectoryService
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(ds services.DirectoryService) *MemberHandler {
	return &MemberHandler{directoryService: ds}
}

// GetMembers handles listing all members.
func (h *MemberHandler) GetMembers(c *gin.Context) {
	members, err := h.directoryService.ListMembers()
	if err != nil {
		utils.LogError(err, "GetMembers: Error from directoryService.ListMembers")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch members.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, members)
}

// GetMemberByID handles fetching a single member with their qualifications.
func (h *MemberHandler) GetMemberByID(c *gin.Context) {
	memberID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	member, err := h.directoryService.GetMemberByID(memberID)
	if err != nil {
		utils.LogError(err, "GetMemberByID: Error from directoryService.GetMemberByID")
		if errors.Is(err, services.ErrMemberNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Member not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch member.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, member)
}

// GetQualifications handles listing all qualifications.
func (h *MemberHandler) GetQualifications(c *gin.Context) {
	qualifications, err := h.directoryService.ListQualifications()
	if err != nil {
		utils.LogError(err, "GetQualifications: Error from directoryService.ListQualifications")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch qualifications.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, qualifications)
}
