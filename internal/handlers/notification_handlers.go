package handlers

import (
	"errors"
	"net/http"

	"shift_planner_backend/internal/services"
	"shift_planner_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// NotificationHandler exposes the notification inbox endpoints.
type NotificationHandler struct {
	notificationService services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(ns services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: ns}
}

// GetNotifications handles listing all of the user's notifications,
// archived ones included.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	notifications, err := h.notificationService.ListForUser(actorID, true)
	if err != nil {
		utils.LogError(err, "GetNotifications: Error from notificationService.ListForUser")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch notifications.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// GetActiveNotifications handles listing unread and read notifications only.
func (h *NotificationHandler) GetActiveNotifications(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	notifications, err := h.notificationService.ListForUser(actorID, false)
	if err != nil {
		utils.LogError(err, "GetActiveNotifications: Error from notificationService.ListForUser")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch notifications.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// GetUnreadCount handles the unread badge count.
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	count, err := h.notificationService.UnreadCount(actorID)
	if err != nil {
		utils.LogError(err, "GetUnreadCount: Error from notificationService.UnreadCount")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to count notifications.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// MarkNotificationRead handles the UNREAD to READ transition.
func (h *NotificationHandler) MarkNotificationRead(c *gin.Context) {
	notificationID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	notification, err := h.notificationService.MarkRead(notificationID, actorID)
	if err != nil {
		utils.LogError(err, "MarkNotificationRead: Error from notificationService.MarkRead")
		h.respondNotificationError(c, err, "Failed to mark notification as read.")
		return
	}
	c.JSON(http.StatusOK, notification)
}

// ArchiveNotification handles the READ to ARCHIVED transition.
func (h *NotificationHandler) ArchiveNotification(c *gin.Context) {
	notificationID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	notification, err := h.notificationService.Archive(notificationID, actorID)
	if err != nil {
		utils.LogError(err, "ArchiveNotification: Error from notificationService.Archive")
		h.respondNotificationError(c, err, "Failed to archive notification.")
		return
	}
	c.JSON(http.StatusOK, notification)
}

func (h *NotificationHandler) respondNotificationError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, services.ErrNotificationNotFound) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, err.Error(), err.Error()))
	} else if errors.Is(err, services.ErrUnauthorized) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, err.Error(), err.Error()))
	} else if errors.Is(err, services.ErrInvalidTransition) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, err.Error(), err.Error()))
	} else {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, fallback, "Internal error"))
	}
}
