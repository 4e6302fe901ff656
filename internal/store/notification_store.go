package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tvo/signaldesk/internal/model"
)

// notificationRow is the database representation of a model.Notification.
type notificationRow struct {
	ID        string    `db:"id"`
	SignalID  string    `db:"signal_id"`
	Kind      string    `db:"kind"`
	Message   string    `db:"message"`
	Read      bool      `db:"read"`
	CreatedAt time.Time `db:"created_at"`
}

// CreateNotification appends a notification to the local history.
// Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, signal_id, kind, message, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.SignalID, string(n.Kind), n.Message, n.Read, n.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}

// GetUnreadNotifications returns unread notifications, newest first.
func (s *SQLiteStore) GetUnreadNotifications(ctx context.Context) ([]model.Notification, error) {
	var rows []notificationRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM notifications
		WHERE read = 0
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying unread notifications: %w", err)
	}

	notifications := make([]model.Notification, len(rows))
	for i, r := range rows {
		notifications[i] = model.Notification{
			ID:        r.ID,
			SignalID:  r.SignalID,
			Kind:      model.NotificationKind(r.Kind),
			Message:   r.Message,
			Read:      r.Read,
			CreatedAt: r.CreatedAt,
		}
	}
	return notifications, nil
}

// MarkNotificationRead marks a single notification as seen.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE notifications SET read = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking notification %s read: %w", id, err)
	}
	return nil
}
