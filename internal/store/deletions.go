package store

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/handreceipt/internal/model"
)

// CreateDeletion records why and when an item was moved to the recycle bin.
func CreateDeletion(ctx context.Context, db Querier, itemID int64, reason string, at time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO deletions (item_id, reason, deleted_at) VALUES (?, ?, ?)`,
		itemID, reason, at,
	)
	if err != nil {
		return fmt.Errorf("creating deletion record: %w", err)
	}
	return nil
}

// RemoveDeletion erases an item's deletion record.
func RemoveDeletion(ctx context.Context, db Querier, itemID int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM deletions WHERE item_id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("removing deletion record: %w", err)
	}
	return nil
}

// ListDeletedItems returns the recycle bin, most recently deleted first.
func ListDeletedItems(ctx context.Context, db Querier) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` `+itemFrom+`
		 WHERE i.status = 'deleted'
		 ORDER BY d.deleted_at DESC, i.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recycle bin: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}
