package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/handreceipt/internal/model"
)

const custodianColumns = `c.id, c.name, c.issued_by, c.contact, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM items i WHERE i.custodian_id = c.id AND i.status = 'issued')`

// UpsertCustodian creates the custodian if the name is new, otherwise
// overwrites issued_by and contact with the given values.
func UpsertCustodian(ctx context.Context, db Querier, name, issuedBy, contact string, now time.Time) (*model.Custodian, error) {
	_, err := db.ExecContext(ctx,
		`INSERT INTO custodians (name, issued_by, contact, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
		     issued_by = excluded.issued_by,
		     contact = excluded.contact,
		     updated_at = excluded.updated_at`,
		name, issuedBy, contact, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting custodian: %w", err)
	}

	c, err := GetCustodianByName(ctx, db, name)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("upserting custodian: %q not found after write", name)
	}
	return c, nil
}

// GetCustodian returns a custodian by ID.
func GetCustodian(ctx context.Context, db Querier, id int64) (*model.Custodian, error) {
	return getCustodian(ctx, db, `c.id = ?`, id)
}

// GetCustodianByName returns a custodian by name.
func GetCustodianByName(ctx context.Context, db Querier, name string) (*model.Custodian, error) {
	return getCustodian(ctx, db, `c.name = ?`, name)
}

func getCustodian(ctx context.Context, db Querier, where string, arg any) (*model.Custodian, error) {
	c := &model.Custodian{}
	err := db.QueryRowContext(ctx,
		`SELECT `+custodianColumns+` FROM custodians c WHERE `+where, arg,
	).Scan(&c.ID, &c.Name, &c.IssuedBy, &c.Contact, &c.CreatedAt, &c.UpdatedAt, &c.IssuedCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting custodian: %w", err)
	}
	return c, nil
}

// ListCustodians returns custodians that currently hold at least one item,
// ordered by name regardless of case.
func ListCustodians(ctx context.Context, db Querier) ([]model.Custodian, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT c.id, c.name, c.issued_by, c.contact, c.created_at, c.updated_at, COUNT(i.id)
		 FROM custodians c
		 JOIN items i ON i.custodian_id = c.id AND i.status = 'issued'
		 GROUP BY c.id
		 ORDER BY LOWER(c.name)`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing custodians: %w", err)
	}
	defer rows.Close()

	var custodians []model.Custodian
	for rows.Next() {
		var c model.Custodian
		if err := rows.Scan(&c.ID, &c.Name, &c.IssuedBy, &c.Contact, &c.CreatedAt, &c.UpdatedAt, &c.IssuedCount); err != nil {
			return nil, fmt.Errorf("scanning custodian: %w", err)
		}
		custodians = append(custodians, c)
	}
	return custodians, rows.Err()
}
