package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: lookup indexes for the "my requests" and inbox listings.
	`CREATE INDEX IF NOT EXISTS idx_requests_requester ON requests(requester_id, kind, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_owner ON requests(owner_id, kind, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_item ON requests(item_id, status)`,

	// Migration 2: chat history and notification inbox ordering.
	`CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, id)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id) WHERE read_at IS NULL`,

	// Migration 3: public listing filters.
	`CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id) WHERE deleted_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_items_status ON items(status, listing_type) WHERE deleted_at IS NULL`,
}

// Migrate ensures the schema exists and applies all migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
