package services

import (
	"errors"
	"fmt"

	"shift_planner_backend/internal/models"
	"shift_planner_backend/internal/repositories"
	"shift_planner_backend/pkg/utils"

	"github.com/google/uuid"
)

// --- NotificationService Interface ---

// NotificationService is the at-least-once delivery outbox. Emission commits
// rows first, then pushes each one out-of-band; a push that is lost leaves
// the row behind, a retried emission may push twice. MarkRead and Archive are
// recipient-scoped transitions: UNREAD to READ to ARCHIVED, never skipping
// READ.
type NotificationService interface {
	Notifier
	MarkRead(notificationID, actorUserID uuid.UUID) (*models.Notification, error)
	Archive(notificationID, actorUserID uuid.UUID) (*models.Notification, error)
	ListForUser(actorUserID uuid.UUID, includeArchived bool) ([]models.Notification, error)
	UnreadCount(actorUserID uuid.UUID) (int, error)
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	pusher           Pusher
}

// NewNotificationService creates a new instance of NotificationService.
func NewNotificationService(nr repositories.NotificationRepository, pusher Pusher) NotificationService {
	return &notificationService{notificationRepo: nr, pusher: pusher}
}

// Notify fans one message out to every recipient. It never fails the caller:
// a mutation that already committed must not be rolled back because its
// notification could not be written, so failures are only logged.
func (s *notificationService) Notify(recipientIDs []uuid.UUID, message string) {
	if len(recipientIDs) == 0 {
		return
	}

	notifications := make([]models.Notification, 0, len(recipientIDs))
	for _, userID := range recipientIDs {
		notifications = append(notifications, models.Notification{
			UserID:  userID,
			Message: message,
			Status:  models.NotificationStatusUnread,
		})
	}

	if err := s.notificationRepo.CreateNotifications(nil, notifications); err != nil {
		utils.LogError(err, "failed to store notifications")
		return
	}

	// Push after commit, off the caller's path. A duplicate push on retry is
	// acceptable; a rolled-back mutation with a delivered push is not.
	for _, n := range notifications {
		go func(n models.Notification) {
			s.pusher.Push(n.UserID, n)
		}(n)
	}
}

// MarkRead transitions an UNREAD notification to READ. Only the recipient may
// read it; retrying after success returns the READ row unchanged.
func (s *notificationService) MarkRead(notificationID, actorUserID uuid.UUID) (*models.Notification, error) {
	n, err := s.notificationRepo.MarkRead(notificationID, actorUserID)
	if err != nil {
		return s.mapTransitionError(n, err, notificationID, actorUserID, models.NotificationStatusRead)
	}
	return n, nil
}

// Archive transitions a READ notification to ARCHIVED. Archiving an UNREAD
// notification is rejected so unread counts stay honest.
func (s *notificationService) Archive(notificationID, actorUserID uuid.UUID) (*models.Notification, error) {
	n, err := s.notificationRepo.Archive(notificationID, actorUserID)
	if err != nil {
		return s.mapTransitionError(n, err, notificationID, actorUserID, models.NotificationStatusArchived)
	}
	return n, nil
}

func (s *notificationService) mapTransitionError(n *models.Notification, err error, notificationID, actorUserID uuid.UUID, target models.NotificationStatus) (*models.Notification, error) {
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: ID %s", ErrNotificationNotFound, notificationID)
	}
	if errors.Is(err, repositories.ErrConflict) {
		if n == nil {
			return nil, fmt.Errorf("failed to update notification: %w", err)
		}
		if n.UserID != actorUserID {
			return nil, fmt.Errorf("%w: notification %s belongs to another user", ErrUnauthorized, notificationID)
		}
		if n.Status == target {
			// Retry of a transition that already landed.
			return n, nil
		}
		return nil, fmt.Errorf("%w: notification %s is %s", ErrInvalidTransition, notificationID, n.Status)
	}
	return nil, fmt.Errorf("failed to update notification: %w", err)
}

func (s *notificationService) ListForUser(actorUserID uuid.UUID, includeArchived bool) ([]models.Notification, error) {
	notifications, err := s.notificationRepo.GetNotificationsForUser(actorUserID, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *notificationService) UnreadCount(actorUserID uuid.UUID) (int, error) {
	count, err := s.notificationRepo.CountUnreadForUser(actorUserID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
