package handlers

import (
	"net/http"

	"shift_planner_backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// currentUserID extracts the authenticated user's ID set by AuthMiddleware.
// It writes the error response itself, so callers just return on !ok.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get("userID")
	if !exists {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", ""))
		return uuid.Nil, false
	}
	userID, ok := raw.(uuid.UUID)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Invalid user identity in context.", ""))
		return uuid.Nil, false
	}
	return userID, true
}

// uuidParam parses a UUID path parameter, responding with a validation error
// on failure.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(c.Param(name))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+name+" parameter.", err.Error()))
		return uuid.Nil, false
	}
	return id, true
}
