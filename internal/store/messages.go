package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sharecycle/sharecycle/internal/model"
)

// MaxMessagePage caps the number of messages returned by ListMessages.
const MaxMessagePage = 200

// InsertMessage appends a message to a chat and returns it.
func InsertMessage(ctx context.Context, q Querier, chatID string, senderID int64, body string, now time.Time) (*model.Message, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO messages (chat_id, sender_id, body, created_at) VALUES (?, ?, ?, ?)`,
		chatID, senderID, body, now,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting message id: %w", err)
	}
	return &model.Message{ID: id, ChatID: chatID, SenderID: senderID, Body: body, CreatedAt: now}, nil
}

// ListMessages returns messages of a chat with IDs greater than afterID in
// posting order, at most limit of them.
func ListMessages(ctx context.Context, q Querier, chatID string, afterID int64, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > MaxMessagePage {
		limit = MaxMessagePage
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, chat_id, sender_id, body, created_at
		 FROM messages WHERE chat_id = ? AND id > ?
		 ORDER BY id LIMIT ?`,
		chatID, afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
