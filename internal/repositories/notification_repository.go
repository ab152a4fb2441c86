package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shift_planner_backend/internal/models"

	"github.com/google/uuid"
)

// NotificationRepository defines the interface for notification database
// operations. MarkRead and Archive are conditional on both the recipient and
// the current status, returning the current row with ErrConflict when the
// transition is not allowed.
type NotificationRepository interface {
	CreateNotifications(executor SQLExecutor, notifications []models.Notification) error
	GetNotificationByID(id uuid.UUID) (*models.Notification, error)
	GetNotificationsForUser(userID uuid.UUID, includeArchived bool) ([]models.Notification, error)
	CountUnreadForUser(userID uuid.UUID) (int, error)
	MarkRead(id, userID uuid.UUID) (*models.Notification, error)
	Archive(id, userID uuid.UUID) (*models.Notification, error)
}

type notificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new instance of NotificationRepository.
func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateNotifications(executor SQLExecutor, notifications []models.Notification) error {
	if executor == nil {
		executor = r.db
	}
	query := `INSERT INTO notifications (id, user_id, message, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	currentTime := time.Now()
	for i := range notifications {
		n := &notifications[i]
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		n.CreatedAt = currentTime
		n.UpdatedAt = currentTime
		if _, err := executor.Exec(query, n.ID, n.UserID, n.Message, string(n.Status), n.CreatedAt, n.UpdatedAt); err != nil {
			return fmt.Errorf("%w: creating notification for user %s: %v", ErrDatabaseError, n.UserID, err)
		}
	}
	return nil
}

func scanNotificationRow(row scanner) (*models.Notification, error) {
	var n models.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.Status, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning notification: %v", ErrDatabaseError, err)
	}
	return &n, nil
}

const selectNotificationFields = `id, user_id, message, status, created_at, updated_at`

func (r *notificationRepository) GetNotificationByID(id uuid.UUID) (*models.Notification, error) {
	query := "SELECT " + selectNotificationFields + " FROM notifications WHERE id = $1"
	return scanNotificationRow(r.db.QueryRow(query, id))
}

func (r *notificationRepository) GetNotificationsForUser(userID uuid.UUID, includeArchived bool) ([]models.Notification, error) {
	query := "SELECT " + selectNotificationFields + " FROM notifications WHERE user_id = $1"
	args := []interface{}{userID}
	if !includeArchived {
		query += " AND status <> $2"
		args = append(args, string(models.NotificationStatusArchived))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying notifications for user %s: %v", ErrDatabaseError, userID, err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		n, scanErr := scanNotificationRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		notifications = append(notifications, *n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating notification rows: %v", ErrDatabaseError, err)
	}
	return notifications, nil
}

func (r *notificationRepository) CountUnreadForUser(userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND status = $2`,
		userID, string(models.NotificationStatusUnread),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting unread notifications for user %s: %v", ErrDatabaseError, userID, err)
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(id, userID uuid.UUID) (*models.Notification, error) {
	return r.transition(id, userID, models.NotificationStatusUnread, models.NotificationStatusRead)
}

func (r *notificationRepository) Archive(id, userID uuid.UUID) (*models.Notification, error) {
	return r.transition(id, userID, models.NotificationStatusRead, models.NotificationStatusArchived)
}

func (r *notificationRepository) transition(id, userID uuid.UUID, expected, next models.NotificationStatus) (*models.Notification, error) {
	res, err := r.db.Exec(
		`UPDATE notifications SET status = $1, updated_at = $2 WHERE id = $3 AND user_id = $4 AND status = $5`,
		string(next), time.Now(), id, userID, string(expected),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: updating notification %s: %v", ErrDatabaseError, id, err)
	}
	affected, _ := res.RowsAffected()

	n, err := r.GetNotificationByID(id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return n, fmt.Errorf("%w: notification %s is %s, not %s", ErrConflict, id, n.Status, expected)
	}
	return n, nil
}
