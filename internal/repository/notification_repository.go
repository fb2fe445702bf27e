package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/applypilot/applypilot-api/internal/apperr"
	"github.com/applypilot/applypilot-api/internal/models"
)

type CreateNotificationParams struct {
	UserID        string
	Title         string
	Message       string
	Category      models.NotificationCategory
	ApplicationID *string
	ActionURL     *string
}

type NotificationRepository interface {
	Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error)
	List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Notification, int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID, notificationID string) error
	// ExistsSince reports whether a notification with the same structured
	// dedup key (user, category, application) was created at or after since.
	ExistsSince(ctx context.Context, userID string, category models.NotificationCategory, applicationID string, since time.Time) (bool, error)
}

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `
	id, user_id, title, message, category, application_id, action_url,
	is_read, read_at, created_at`

func (r *notificationRepository) Create(ctx context.Context, params CreateNotificationParams) (models.Notification, error) {
	const query = `
		INSERT INTO notifications (user_id, title, message, category, application_id, action_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING` + notificationColumns

	row := r.db.QueryRowContext(ctx, query,
		params.UserID, params.Title, params.Message, params.Category,
		params.ApplicationID, params.ActionURL,
	)
	return scanNotification(row)
}

func (r *notificationRepository) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Notification, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	countQuery := `SELECT COUNT(*) FROM notifications WHERE user_id = $1`
	listQuery := `
		SELECT` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1`
	if unreadOnly {
		countQuery += ` AND is_read = FALSE`
		listQuery += ` AND is_read = FALSE`
	}
	listQuery += `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, listQuery, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, notif)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`

	var count int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&count)
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, notificationID string) (models.Notification, error) {
	const query = `
		UPDATE notifications
		SET is_read = TRUE, read_at = COALESCE(read_at, now())
		WHERE id = $1 AND user_id = $2
		RETURNING` + notificationColumns

	notif, err := scanNotification(r.db.QueryRowContext(ctx, query, notificationID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Notification{}, apperr.ErrNotFound
		}
		return models.Notification{}, err
	}
	return notif, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	const query = `
		UPDATE notifications
		SET is_read = TRUE, read_at = now()
		WHERE user_id = $1 AND is_read = FALSE`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

func (r *notificationRepository) Delete(ctx context.Context, userID, notificationID string) error {
	const query = `DELETE FROM notifications WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, notificationID, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *notificationRepository) ExistsSince(ctx context.Context, userID string, category models.NotificationCategory, applicationID string, since time.Time) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE user_id = $1 AND category = $2 AND application_id = $3 AND created_at >= $4
		)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, userID, category, applicationID, since).Scan(&exists)
	return exists, err
}

func scanNotification(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Notification, error) {
	var (
		notif         models.Notification
		applicationID sql.NullString
		actionURL     sql.NullString
		readAt        sql.NullTime
	)

	if err := scanner.Scan(
		&notif.ID,
		&notif.UserID,
		&notif.Title,
		&notif.Message,
		&notif.Category,
		&applicationID,
		&actionURL,
		&notif.IsRead,
		&readAt,
		&notif.CreatedAt,
	); err != nil {
		return models.Notification{}, err
	}

	notif.ApplicationID = nullString(applicationID)
	notif.ActionURL = nullString(actionURL)
	notif.ReadAt = nullTime(readAt)
	return notif, nil
}
