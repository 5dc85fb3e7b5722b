package custody

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/erazemk/handreceipt/internal/model"
	"github.com/erazemk/handreceipt/internal/store"
)

// SoftDelete moves on-hand serials to the recycle bin. Issued serials are
// blocked and left untouched; see BatchResult.Blocked.
func (s *Service) SoftDelete(ctx context.Context, serials []string, reason string) (BatchResult, error) {
	reason = strings.TrimSpace(reason)
	return s.batch(ctx, "delete", serials, func(ctx context.Context, tx *sql.Tx, serial string, now time.Time) (*model.Item, error) {
		item, err := liveItem(ctx, tx, serial, ActionDelete)
		if err != nil {
			return nil, err
		}
		if err := store.SetItemStatus(ctx, tx, item.ID, model.StatusOnHand, model.StatusDeleted, nil, now); err != nil {
			return nil, err
		}
		if err := store.CreateDeletion(ctx, tx, item.ID, reason, now); err != nil {
			return nil, err
		}
		err = store.RecordEvent(ctx, tx, model.Event{
			ItemID: item.ID, Serial: serial, Action: model.EventDeleted, Notes: reason, OccurredAt: now,
		})
		if err != nil {
			return nil, err
		}
		return store.GetItem(ctx, tx, item.ID)
	})
}

// deletedItems returns the deleted records of serial, most recent first.
// With none, the error tells a live serial apart from an unknown one.
func deletedItems(ctx context.Context, q store.Querier, serial string) ([]model.Item, error) {
	deleted, err := store.ListDeletedBySerial(ctx, q, serial)
	if err != nil {
		return nil, err
	}
	if len(deleted) > 0 {
		return deleted, nil
	}
	live, err := store.GetLiveItemBySerial(ctx, q, serial)
	if err != nil {
		return nil, err
	}
	if live != nil {
		return nil, ErrNotDeleted
	}
	return nil, ErrNotFound
}

// Restore brings the most recently deleted record of each serial back on
// hand. It fails with ErrSerialConflict while a live item uses the serial.
func (s *Service) Restore(ctx context.Context, serials []string) (BatchResult, error) {
	return s.batch(ctx, "restore", serials, func(ctx context.Context, tx *sql.Tx, serial string, now time.Time) (*model.Item, error) {
		deleted, err := deletedItems(ctx, tx, serial)
		if err != nil {
			return nil, err
		}
		target := deleted[0]
		if err := CheckTransition(target.Status, ActionRestore); err != nil {
			return nil, err
		}
		live, err := store.GetLiveItemBySerial(ctx, tx, serial)
		if err != nil {
			return nil, err
		}
		if live != nil {
			return nil, ErrSerialConflict
		}
		if err := store.RemoveDeletion(ctx, tx, target.ID); err != nil {
			return nil, err
		}
		if err := store.SetItemStatus(ctx, tx, target.ID, model.StatusDeleted, model.StatusOnHand, nil, now); err != nil {
			return nil, err
		}
		err = store.RecordEvent(ctx, tx, model.Event{
			ItemID: target.ID, Serial: serial, Action: model.EventRestored, OccurredAt: now,
		})
		if err != nil {
			return nil, err
		}
		return store.GetItem(ctx, tx, target.ID)
	})
}

// Purge permanently erases every deleted record of each serial. Live items
// sharing the serial are not affected. The outcome carries the most recent
// erased record.
func (s *Service) Purge(ctx context.Context, serials []string) (BatchResult, error) {
	return s.batch(ctx, "purge", serials, func(ctx context.Context, tx *sql.Tx, serial string, now time.Time) (*model.Item, error) {
		deleted, err := deletedItems(ctx, tx, serial)
		if err != nil {
			return nil, err
		}
		for _, item := range deleted {
			if err := CheckTransition(item.Status, ActionPurge); err != nil {
				return nil, err
			}
			if err := store.DeleteItem(ctx, tx, item.ID); err != nil {
				return nil, err
			}
			err := store.RecordEvent(ctx, tx, model.Event{
				ItemID: item.ID, Serial: serial, Action: model.EventPurged, OccurredAt: now,
			})
			if err != nil {
				return nil, err
			}
		}
		return &deleted[0], nil
	})
}

// RecycleBin lists every deleted item, most recently deleted first.
func (s *Service) RecycleBin(ctx context.Context) ([]model.Item, error) {
	return store.ListDeletedItems(ctx, s.db)
}
