package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sharecycle/sharecycle/internal/model"
)

const itemColumns = `i.id, i.owner_id, i.title, i.description, i.category, i.listing_type, i.status,
	i.image_mime, i.created_at, i.updated_at, i.deleted_at, u.display_name`

// ItemFilter narrows ListItems. Zero values mean "any".
type ItemFilter struct {
	OwnerID     int64
	Status      string
	ListingType string
}

// CreateItem creates a new available listing.
func CreateItem(ctx context.Context, q Querier, ownerID int64, title, description, category, listingType string) (*model.Item, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO items (owner_id, title, description, category, listing_type) VALUES (?, ?, ?, ?, ?)`,
		ownerID, title, description, category, listingType,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, q, id)
}

// GetItem returns an item by ID, including soft-deleted items.
func GetItem(ctx context.Context, q Querier, id int64) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx,
		`SELECT `+itemColumns+`
		 FROM items i JOIN users u ON u.id = i.owner_id
		 WHERE i.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns non-deleted items matching the filter, newest first.
func ListItems(ctx context.Context, q Querier, f ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + `
	          FROM items i JOIN users u ON u.id = i.owner_id
	          WHERE i.deleted_at IS NULL`
	var args []any

	if f.OwnerID > 0 {
		query += ` AND i.owner_id = ?`
		args = append(args, f.OwnerID)
	}
	if f.Status != "" {
		query += ` AND i.status = ?`
		args = append(args, f.Status)
	}
	if f.ListingType != "" {
		query += ` AND i.listing_type = ?`
		args = append(args, f.ListingType)
	}

	query += ` ORDER BY i.created_at DESC, i.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem updates an item's descriptive fields.
func UpdateItem(ctx context.Context, q Querier, id int64, title, description, category string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE items SET title = ?, description = ?, category = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		title, description, category, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// SetItemStatus changes an item's availability.
func SetItemStatus(ctx context.Context, q Querier, id int64, status string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("setting item status: %w", err)
	}
	return nil
}

// DeleteItem soft-deletes an item and marks it removed.
func DeleteItem(ctx context.Context, q Querier, id int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP, status = 'removed', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// ErrItemBusy is returned by RemoveIdleItem while an active request asks for
// the item or offers it.
var ErrItemBusy = errors.New("item has requests in progress")

// RemoveIdleItem soft-deletes an item unless it has active requests. The check
// and the delete share one write transaction, so no request can be submitted
// in between.
func RemoveIdleItem(ctx context.Context, db *sql.DB, id int64) error {
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		active, err := ListActiveRequestsTouching(ctx, tx, id)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return ErrItemBusy
		}
		return DeleteItem(ctx, tx, id)
	})
}

// SetItemImage sets an item's photo.
func SetItemImage(ctx context.Context, q Querier, id int64, image []byte, mime string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's photo and MIME type. Both are empty if the
// item has no photo.
func GetItemImage(ctx context.Context, q Querier, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var description, category, imageMime, ownerName sql.NullString
	err := row.Scan(&item.ID, &item.OwnerID, &item.Title, &description, &category, &item.ListingType, &item.Status,
		&imageMime, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt, &ownerName)
	if err != nil {
		return nil, err
	}
	item.Description = description.String
	item.Category = category.String
	item.ImageMime = imageMime.String
	item.OwnerName = ownerName.String
	return item, nil
}
