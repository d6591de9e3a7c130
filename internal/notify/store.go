package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sharecycle/sharecycle/internal/model"
	"github.com/sharecycle/sharecycle/internal/store"
)

// Store records events as in-app notifications.
type Store struct {
	DB  *sql.DB
	Now func() time.Time
}

// Notify implements Notifier.
func (s *Store) Notify(ctx context.Context, userID int64, eventType string, p Payload) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	body := p.Text
	if body == "" && p.ItemTitle != "" {
		body = p.ItemTitle
	}

	n := &model.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      eventType,
		Title:     Title(eventType),
		Body:      body,
		Reference: p.RequestID,
		CreatedAt: now().UTC(),
	}
	if err := store.InsertNotification(ctx, s.DB, n); err != nil {
		return fmt.Errorf("storing notification: %w", err)
	}
	return nil
}
