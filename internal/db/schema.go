package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS custodians (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE CHECK (name <> ''),
    issued_by  TEXT NOT NULL DEFAULT '',
    contact    TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id           INTEGER PRIMARY KEY,
    model        TEXT NOT NULL CHECK (model <> ''),
    category     TEXT NOT NULL CHECK (category <> ''),
    box          TEXT,
    serial       TEXT NOT NULL CHECK (serial <> ''),
    asset_tag    TEXT,
    status       TEXT NOT NULL DEFAULT 'on_hand' CHECK (status IN ('on_hand', 'issued', 'deleted')),
    custodian_id INTEGER REFERENCES custodians(id),
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK ((status = 'issued') = (custodian_id IS NOT NULL))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_items_serial_live
    ON items(serial) WHERE status <> 'deleted';

CREATE INDEX IF NOT EXISTS idx_items_custodian
    ON items(custodian_id) WHERE status = 'issued';

CREATE TABLE IF NOT EXISTS deletions (
    item_id    INTEGER PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
    reason     TEXT NOT NULL DEFAULT '',
    deleted_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    id          INTEGER PRIMARY KEY,
    item_id     INTEGER NOT NULL,
    serial      TEXT NOT NULL,
    action      TEXT NOT NULL CHECK (action IN ('created', 'updated', 'revived', 'issued', 'returned', 'deleted', 'restored', 'purged')),
    custodian   TEXT NOT NULL DEFAULT '',
    issued_by   TEXT NOT NULL DEFAULT '',
    notes       TEXT NOT NULL DEFAULT '',
    occurred_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_serial ON events(serial);

CREATE TABLE IF NOT EXISTS receipts (
    id           TEXT PRIMARY KEY,
    custodian_id INTEGER NOT NULL REFERENCES custodians(id),
    file_name    TEXT NOT NULL,
    page_count   INTEGER NOT NULL CHECK (page_count > 0),
    row_count    INTEGER NOT NULL CHECK (row_count >= 0),
    digest       TEXT NOT NULL,
    generated_at DATETIME NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: items created before the event log existed get a
	// "created" event so history queries never come back empty.
	`INSERT INTO events (item_id, serial, action, occurred_at)
	     SELECT i.id, i.serial, 'created', i.created_at FROM items i
	     WHERE NOT EXISTS (SELECT 1 FROM events e WHERE e.item_id = i.id)`,
}

// EnsureSchema creates all tables and indexes if they don't already exist,
// then runs the migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
