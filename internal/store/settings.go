package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// GetSettings returns all settings whose key starts with prefix.
func GetSettings(ctx context.Context, db Querier, prefix string) (map[string]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT key, value FROM settings WHERE substr(key, 1, ?) = ?`,
		len(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		values[k] = v
	}
	return values, rows.Err()
}

// PutSettings writes all values in a single transaction, so readers see
// either none or all of them.
func PutSettings(ctx context.Context, db *sql.DB, values map[string]string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, k := range sortedKeys(values) {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			k, values[k],
		)
		if err != nil {
			return fmt.Errorf("storing setting %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing settings: %w", err)
	}
	return nil
}

// SeedSettings stores defaults for keys that have no value yet. Existing
// values are kept. Uses INSERT OR IGNORE so concurrent startups agree.
func SeedSettings(ctx context.Context, db Querier, defaults map[string]string) error {
	for _, k := range sortedKeys(defaults) {
		_, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
			k, defaults[k],
		)
		if err != nil {
			return fmt.Errorf("seeding setting %s: %w", k, err)
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
