package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sharecycle/sharecycle/internal/model"
)

// InsertNotification stores an in-app notification.
func InsertNotification(ctx context.Context, q Querier, n *model.Notification) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, type, title, body, reference, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Type, n.Title, n.Body, n.Reference, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func ListNotifications(ctx context.Context, q Querier, userID int64, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.QueryContext(ctx,
		`SELECT id, user_id, type, title, body, reference, created_at, read_at
		 FROM notifications WHERE user_id = ?
		 ORDER BY created_at DESC, id LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		var body, reference sql.NullString
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &body, &reference, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		n.Body = body.String
		n.Reference = reference.String
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// CountUnreadNotifications returns how many notifications the user has not read.
func CountUnreadNotifications(ctx context.Context, q Querier, userID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read_at IS NULL`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return n, nil
}

// MarkNotificationRead marks one of the user's notifications as read. It
// reports whether a matching notification exists.
func MarkNotificationRead(ctx context.Context, q Querier, userID int64, id string, now time.Time) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE notifications SET read_at = COALESCE(read_at, ?) WHERE id = ? AND user_id = ?`,
		now, id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("marking notification read: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// MarkAllNotificationsRead marks every unread notification of the user as read.
func MarkAllNotificationsRead(ctx context.Context, q Querier, userID int64, now time.Time) (int64, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE notifications SET read_at = ? WHERE user_id = ? AND read_at IS NULL`,
		now, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
