package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/handreceipt/internal/model"
)

const itemColumns = `i.id, i.model, i.category, i.box, i.serial, i.asset_tag, i.status, i.custodian_id,
	i.created_at, i.updated_at, c.name, d.reason, d.deleted_at`

const itemFrom = `FROM items i
	LEFT JOIN custodians c ON c.id = i.custodian_id
	LEFT JOIN deletions d ON d.item_id = i.id`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanItem reads one item row and rebuilds its status variant. A row whose
// status and links disagree is reported as an error rather than patched up.
func scanItem(s rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var (
		box, assetTag, custodianName, reason sql.NullString
		custodianID                          sql.NullInt64
		deletedAt                            sql.NullTime
		status                               string
	)
	err := s.Scan(&item.ID, &item.Model, &item.Category, &box, &item.Serial, &assetTag, &status, &custodianID,
		&item.CreatedAt, &item.UpdatedAt, &custodianName, &reason, &deletedAt)
	if err != nil {
		return nil, err
	}
	item.Box = box.String
	item.AssetTag = assetTag.String

	switch status {
	case model.StatusOnHand:
		item.Status = model.OnHand{}
	case model.StatusIssued:
		if !custodianID.Valid {
			return nil, fmt.Errorf("item %d is issued without a custodian", item.ID)
		}
		item.Status = model.Issued{CustodianID: custodianID.Int64}
		item.CustodianName = custodianName.String
	case model.StatusDeleted:
		if !deletedAt.Valid {
			return nil, fmt.Errorf("item %d is deleted without a deletion record", item.ID)
		}
		item.Status = model.Deleted{Reason: reason.String, DeletedAt: deletedAt.Time}
	default:
		return nil, fmt.Errorf("item %d has unknown status %q", item.ID, status)
	}
	return item, nil
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
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

// CreateItem creates a new on-hand item.
func CreateItem(ctx context.Context, db Querier, f model.ItemFields, now time.Time) (*model.Item, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (model, category, box, serial, asset_tag, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Model, f.Category, nullString(f.Box), f.Serial, nullString(f.AssetTag), model.StatusOnHand, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db Querier, id int64) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` `+itemFrom+` WHERE i.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// GetLiveItemBySerial returns the on-hand or issued item with the given serial.
func GetLiveItemBySerial(ctx context.Context, db Querier, serial string) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` `+itemFrom+` WHERE i.serial = ? AND i.status <> 'deleted'`, serial,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item by serial: %w", err)
	}
	return item, nil
}

// ListDeletedBySerial returns recycle bin entries for a serial, most recently
// deleted first.
func ListDeletedBySerial(ctx context.Context, db Querier, serial string) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` `+itemFrom+`
		 WHERE i.serial = ? AND i.status = 'deleted'
		 ORDER BY d.deleted_at DESC, i.id DESC`, serial,
	)
	if err != nil {
		return nil, fmt.Errorf("listing deleted items by serial: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// ListItems returns all non-deleted items, optionally filtered by status.
// Passing model.StatusDeleted lists the recycle bin instead.
func ListItems(ctx context.Context, db Querier, status string) ([]model.Item, error) {
	var rows *sql.Rows
	var err error

	if status != "" {
		rows, err = db.QueryContext(ctx,
			`SELECT `+itemColumns+` `+itemFrom+` WHERE i.status = ? ORDER BY i.model, i.serial`, status,
		)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT `+itemColumns+` `+itemFrom+` WHERE i.status <> 'deleted' ORDER BY i.model, i.serial`,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// ListIssuedItems returns the items currently issued to a custodian in
// creation order.
func ListIssuedItems(ctx context.Context, db Querier, custodianID int64) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` `+itemFrom+`
		 WHERE i.status = 'issued' AND i.custodian_id = ?
		 ORDER BY i.id`, custodianID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing issued items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// UpdateItemFields overwrites an item's editable attributes. Status and
// custodian are left alone.
func UpdateItemFields(ctx context.Context, db Querier, id int64, f model.ItemFields, now time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET model = ?, category = ?, box = ?, asset_tag = ?, updated_at = ?
		 WHERE id = ?`,
		f.Model, f.Category, nullString(f.Box), nullString(f.AssetTag), now, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// SetItemStatus moves an item from one status to another, writing the
// custodian link in the same statement. custodianID must be non-nil exactly
// when the new status is issued. It fails if the item is no longer in the
// expected status.
func SetItemStatus(ctx context.Context, db Querier, id int64, from, to string, custodianID *int64, now time.Time) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET status = ?, custodian_id = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		to, custodianID, now, id, from,
	)
	if err != nil {
		return fmt.Errorf("setting item status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking item status update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("setting item status: item %d is not %s", id, from)
	}
	return nil
}

// DeleteItem permanently erases an item. Its deletion record goes with it.
func DeleteItem(ctx context.Context, db Querier, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("purging item: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
