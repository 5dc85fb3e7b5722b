package store

import (
	"context"
	"fmt"

	"github.com/erazemk/handreceipt/internal/model"
)

// CreateReceipt records a generated document.
func CreateReceipt(ctx context.Context, db Querier, r model.Receipt) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO receipts (id, custodian_id, file_name, page_count, row_count, digest, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CustodianID, r.FileName, r.Pages, r.Rows, r.Digest, r.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("recording receipt: %w", err)
	}
	return nil
}

// ListReceipts returns generated documents, newest first, optionally only
// those of one custodian.
func ListReceipts(ctx context.Context, db Querier, custodianID int64) ([]model.Receipt, error) {
	query := `SELECT r.id, r.custodian_id, r.file_name, r.page_count, r.row_count, r.digest, r.generated_at,
	                 c.name AS custodian_name
	          FROM receipts r
	          JOIN custodians c ON c.id = r.custodian_id`
	var args []any
	if custodianID > 0 {
		query += ` WHERE r.custodian_id = ?`
		args = append(args, custodianID)
	}
	query += ` ORDER BY r.generated_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	defer rows.Close()

	var receipts []model.Receipt
	for rows.Next() {
		var r model.Receipt
		if err := rows.Scan(&r.ID, &r.CustodianID, &r.FileName, &r.Pages, &r.Rows, &r.Digest, &r.GeneratedAt, &r.CustodianName); err != nil {
			return nil, fmt.Errorf("scanning receipt: %w", err)
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}
