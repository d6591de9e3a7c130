package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sharecycle/sharecycle/internal/model"
)

const chatColumns = `c.id, c.request_id, c.owner_id, c.requester_id, c.qr_payload,
	c.owner_confirmed, c.requester_confirmed, c.owner_confirmed_at, c.requester_confirmed_at, c.created_at,
	r.kind, r.status, i.title`

const chatFrom = `FROM chats c
	JOIN requests r ON r.id = c.request_id
	JOIN items i ON i.id = r.item_id`

// InsertChat stores a new chat for a request.
func InsertChat(ctx context.Context, q Querier, c *model.Chat) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO chats (id, request_id, owner_id, requester_id, qr_payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.RequestID, c.OwnerID, c.RequesterID, c.QRPayload, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting chat: %w", err)
	}
	return nil
}

// GetChat returns a chat by ID.
func GetChat(ctx context.Context, q Querier, id string) (*model.Chat, error) {
	c, err := scanChat(q.QueryRowContext(ctx, `SELECT `+chatColumns+` `+chatFrom+` WHERE c.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting chat: %w", err)
	}
	return c, nil
}

// ListChatsForUser returns the chats a user participates in, newest first.
func ListChatsForUser(ctx context.Context, q Querier, userID int64) ([]model.Chat, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+chatColumns+` `+chatFrom+`
		 WHERE c.owner_id = ? OR c.requester_id = ?
		 ORDER BY c.created_at DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	defer rows.Close()

	var chats []model.Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning chat: %w", err)
		}
		chats = append(chats, *c)
	}
	return chats, rows.Err()
}

// SetConfirmed sets one party's handoff confirmation flag. Setting an already
// set flag keeps the original timestamp.
func SetConfirmed(ctx context.Context, q Querier, chatID string, party model.Party, now time.Time) error {
	var query string
	switch party {
	case model.PartyOwner:
		query = `UPDATE chats SET owner_confirmed = 1, owner_confirmed_at = COALESCE(owner_confirmed_at, ?) WHERE id = ?`
	case model.PartyRequester:
		query = `UPDATE chats SET requester_confirmed = 1, requester_confirmed_at = COALESCE(requester_confirmed_at, ?) WHERE id = ?`
	default:
		return fmt.Errorf("unknown party %q", party)
	}

	if _, err := q.ExecContext(ctx, query, now, chatID); err != nil {
		return fmt.Errorf("setting chat confirmation: %w", err)
	}
	return nil
}

func scanChat(row rowScanner) (*model.Chat, error) {
	c := &model.Chat{}
	err := row.Scan(&c.ID, &c.RequestID, &c.OwnerID, &c.RequesterID, &c.QRPayload,
		&c.OwnerConfirmed, &c.RequesterConfirmed, &c.OwnerConfirmedAt, &c.RequesterConfirmedAt, &c.CreatedAt,
		&c.RequestKind, &c.RequestStatus, &c.ItemTitle)
	if err != nil {
		return nil, err
	}
	return c, nil
}
