package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sharecycle/sharecycle/internal/model"
)

// ErrActiveRequestExists is returned by InsertRequest when the requester
// already has a non-terminal request for the item.
var ErrActiveRequestExists = errors.New("active request already exists")

const requestColumns = `r.id, r.kind, r.item_id, r.offered_item_id, r.requester_id, r.owner_id, r.status,
	r.recipient_name, r.recipient_contact, r.message, r.created_at, r.updated_at,
	c.id, i.title`

const requestFrom = `FROM requests r
	JOIN items i ON i.id = r.item_id
	LEFT JOIN chats c ON c.request_id = r.id`

// activeStatuses lists the non-terminal statuses as an SQL tuple.
const activeStatuses = `('pending', 'accepted_by_owner', 'accepted_by_requester', 'confirmed')`

// InsertRequest stores a new request. ID, timestamps, and status must be set
// by the caller.
func InsertRequest(ctx context.Context, q Querier, r *model.Request) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO requests (id, kind, item_id, offered_item_id, requester_id, owner_id, status,
		                       recipient_name, recipient_contact, message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Kind, r.ItemID, r.OfferedItemID, r.RequesterID, r.OwnerID, r.Status,
		r.RecipientName, r.RecipientContact, r.Message, r.CreatedAt, r.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrActiveRequestExists
	}
	if err != nil {
		return fmt.Errorf("inserting request: %w", err)
	}
	return nil
}

// GetRequest returns a request by ID.
func GetRequest(ctx context.Context, q Querier, id string) (*model.Request, error) {
	r, err := scanRequest(q.QueryRowContext(ctx,
		`SELECT `+requestColumns+` `+requestFrom+` WHERE r.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting request: %w", err)
	}
	return r, nil
}

// FindActiveRequest returns the requester's non-terminal request for an item,
// if any.
func FindActiveRequest(ctx context.Context, q Querier, itemID, requesterID int64) (*model.Request, error) {
	r, err := scanRequest(q.QueryRowContext(ctx,
		`SELECT `+requestColumns+` `+requestFrom+`
		 WHERE r.item_id = ? AND r.requester_id = ? AND r.status IN `+activeStatuses+`
		 ORDER BY r.created_at DESC LIMIT 1`,
		itemID, requesterID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding active request: %w", err)
	}
	return r, nil
}

// CompareAndSetStatus moves a request from one status to another. It returns
// ErrConflict if the request is no longer in the expected status.
func CompareAndSetStatus(ctx context.Context, q Querier, id string, from, to model.RequestStatus, now time.Time) error {
	res, err := q.ExecContext(ctx,
		`UPDATE requests SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, now, id, from,
	)
	if err != nil {
		return fmt.Errorf("updating request status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking request update: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ListRequestsForUser returns requests of the given kind where the user is
// either the requester or the owner, newest first. An empty kind lists both.
func ListRequestsForUser(ctx context.Context, q Querier, kind model.RequestKind, userID int64) ([]model.Request, error) {
	query := `SELECT ` + requestColumns + ` ` + requestFrom + `
	          WHERE (r.requester_id = ? OR r.owner_id = ?)`
	args := []any{userID, userID}
	if kind != "" {
		query += ` AND r.kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY r.created_at DESC`

	return queryRequests(ctx, q, query, args...)
}

// ListRequestHistory returns the finalized requests of the given kind where
// the user was either party, most recently completed first.
func ListRequestHistory(ctx context.Context, q Querier, kind model.RequestKind, userID int64) ([]model.Request, error) {
	return queryRequests(ctx, q,
		`SELECT `+requestColumns+` `+requestFrom+`
		 WHERE (r.requester_id = ? OR r.owner_id = ?) AND r.kind = ? AND r.status = ?
		 ORDER BY r.updated_at DESC`,
		userID, userID, kind, model.StatusFinalized,
	)
}

// ListRequestsForItem returns every request made for an item, newest first.
func ListRequestsForItem(ctx context.Context, q Querier, itemID int64) ([]model.Request, error) {
	return queryRequests(ctx, q,
		`SELECT `+requestColumns+` `+requestFrom+` WHERE r.item_id = ? ORDER BY r.created_at DESC`,
		itemID,
	)
}

// ListActiveRequestsTouching returns non-terminal requests that ask for, or
// offer, any of the given items.
func ListActiveRequestsTouching(ctx context.Context, q Querier, itemIDs ...int64) ([]model.Request, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(itemIDs)), ", ")
	args := make([]any, 0, 2*len(itemIDs))
	for _, id := range itemIDs {
		args = append(args, id)
	}
	for _, id := range itemIDs {
		args = append(args, id)
	}

	return queryRequests(ctx, q,
		`SELECT `+requestColumns+` `+requestFrom+`
		 WHERE r.status IN `+activeStatuses+`
		   AND (r.item_id IN (`+placeholders+`) OR r.offered_item_id IN (`+placeholders+`))
		 ORDER BY r.created_at`,
		args...,
	)
}

// CountRequests counts requests by kind and status. Empty values match all.
func CountRequests(ctx context.Context, q Querier, kind model.RequestKind, status model.RequestStatus) (int, error) {
	query := `SELECT COUNT(*) FROM requests WHERE 1=1`
	var args []any
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}

	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting requests: %w", err)
	}
	return n, nil
}

func queryRequests(ctx context.Context, q Querier, query string, args ...any) ([]model.Request, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()

	var requests []model.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

func scanRequest(row rowScanner) (*model.Request, error) {
	r := &model.Request{}
	var recipientName, recipientContact, message, chatID sql.NullString
	err := row.Scan(&r.ID, &r.Kind, &r.ItemID, &r.OfferedItemID, &r.RequesterID, &r.OwnerID, &r.Status,
		&recipientName, &recipientContact, &message, &r.CreatedAt, &r.UpdatedAt,
		&chatID, &r.ItemTitle)
	if err != nil {
		return nil, err
	}
	r.RecipientName = recipientName.String
	r.RecipientContact = recipientContact.String
	r.Message = message.String
	r.ChatID = chatID.String
	return r, nil
}
