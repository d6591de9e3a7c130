package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    display_name  TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS items (
    id           INTEGER PRIMARY KEY,
    owner_id     INTEGER NOT NULL REFERENCES users(id),
    title        TEXT NOT NULL,
    description  TEXT,
    category     TEXT,
    listing_type TEXT NOT NULL CHECK (listing_type IN ('exchange', 'donation')),
    status       TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'exchanged', 'donated', 'removed')),
    image        BLOB,
    image_mime   TEXT,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at   DATETIME
);

CREATE TABLE IF NOT EXISTS requests (
    id                TEXT PRIMARY KEY,
    kind              TEXT NOT NULL CHECK (kind IN ('exchange', 'donation')),
    item_id           INTEGER NOT NULL REFERENCES items(id),
    offered_item_id   INTEGER REFERENCES items(id),
    requester_id      INTEGER NOT NULL REFERENCES users(id),
    owner_id          INTEGER NOT NULL REFERENCES users(id),
    status            TEXT NOT NULL DEFAULT 'pending' CHECK (status IN (
                          'pending', 'accepted_by_owner', 'accepted_by_requester',
                          'confirmed', 'rejected', 'finalized')),
    recipient_name    TEXT,
    recipient_contact TEXT,
    message           TEXT,
    created_at        DATETIME NOT NULL,
    updated_at        DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_requests_active
    ON requests(item_id, requester_id) WHERE status NOT IN ('rejected', 'finalized');

CREATE TABLE IF NOT EXISTS chats (
    id                     TEXT PRIMARY KEY,
    request_id             TEXT NOT NULL UNIQUE REFERENCES requests(id),
    owner_id               INTEGER NOT NULL REFERENCES users(id),
    requester_id           INTEGER NOT NULL REFERENCES users(id),
    qr_payload             TEXT NOT NULL,
    owner_confirmed        INTEGER NOT NULL DEFAULT 0,
    requester_confirmed    INTEGER NOT NULL DEFAULT 0,
    owner_confirmed_at     DATETIME,
    requester_confirmed_at DATETIME,
    created_at             DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    chat_id    TEXT NOT NULL REFERENCES chats(id),
    sender_id  INTEGER NOT NULL REFERENCES users(id),
    body       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notifications (
    id         TEXT PRIMARY KEY,
    user_id    INTEGER NOT NULL REFERENCES users(id),
    type       TEXT NOT NULL,
    title      TEXT NOT NULL,
    body       TEXT,
    reference  TEXT,
    created_at DATETIME NOT NULL,
    read_at    DATETIME
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
