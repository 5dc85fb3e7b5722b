package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/handreceipt/internal/model"
)

// EventFilter narrows ListEvents. Zero values match everything.
type EventFilter struct {
	Serial    string
	Custodian string
	Limit     int
}

// RecordEvent appends an entry to the custody history.
func RecordEvent(ctx context.Context, db Querier, e model.Event) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO events (item_id, serial, action, custodian, issued_by, notes, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ItemID, e.Serial, e.Action, e.Custodian, e.IssuedBy, e.Notes, e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("recording %s event: %w", e.Action, err)
	}
	return nil
}

// ListEvents returns custody history, newest first.
func ListEvents(ctx context.Context, db Querier, f EventFilter) ([]model.Event, error) {
	query := `SELECT id, item_id, serial, action, custodian, issued_by, notes, occurred_at
	          FROM events
	          WHERE 1=1`
	var args []any

	if f.Serial != "" {
		query += ` AND serial = ?`
		args = append(args, f.Serial)
	}
	if f.Custodian != "" {
		query += ` AND custodian = ?`
		args = append(args, f.Custodian)
	}

	query += ` ORDER BY occurred_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.ItemID, &e.Serial, &e.Action, &e.Custodian, &e.IssuedBy, &e.Notes, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
