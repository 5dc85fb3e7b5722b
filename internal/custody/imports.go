package custody

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/handreceipt/internal/model"
	"github.com/erazemk/handreceipt/internal/store"
)

// ImportResult summarizes an inventory import.
type ImportResult struct {
	Created []model.Item
	Updated []model.Item
	// Revived items were in the recycle bin and came back on hand.
	Revived  []model.Item
	Rejected []Outcome
}

// Total returns the number of rows applied.
func (r ImportResult) Total() int {
	return len(r.Created) + len(r.Updated) + len(r.Revived)
}

func trimFields(f model.ItemFields) model.ItemFields {
	return model.ItemFields{
		Model:    strings.TrimSpace(f.Model),
		Category: strings.TrimSpace(f.Category),
		Box:      strings.TrimSpace(f.Box),
		Serial:   strings.TrimSpace(f.Serial),
		AssetTag: strings.TrimSpace(f.AssetTag),
	}
}

func validateFields(f model.ItemFields) error {
	var missing []string
	if f.Model == "" {
		missing = append(missing, "model")
	}
	if f.Category == "" {
		missing = append(missing, "category")
	}
	if f.Serial == "" {
		missing = append(missing, "serial")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// AddItem creates one on-hand item. A live item with the same serial is a
// conflict; deleted records of the serial stay in the recycle bin.
func (s *Service) AddItem(ctx context.Context, f model.ItemFields) (*model.Item, error) {
	f = trimFields(f)
	if err := validateFields(f); err != nil {
		return nil, err
	}

	var item *model.Item
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		live, err := store.GetLiveItemBySerial(ctx, tx, f.Serial)
		if err != nil {
			return err
		}
		if live != nil {
			return ErrSerialConflict
		}
		now := s.now()
		item, err = store.CreateItem(ctx, tx, f, now)
		if err != nil {
			return err
		}
		return store.RecordEvent(ctx, tx, model.Event{
			ItemID: item.ID, Serial: item.Serial, Action: model.EventCreated, OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("item added", zap.String("serial", item.Serial), zap.String("model", item.Model))
	return item, nil
}

// Import upserts inventory rows by serial. A live item gets its fields
// overwritten and keeps its status. A serial found only in the recycle bin
// revives the most recent deleted record. Anything else is created on hand.
// When a serial repeats, the last row wins.
func (s *Service) Import(ctx context.Context, rows []model.ItemFields) (ImportResult, error) {
	var result ImportResult

	order := make([]string, 0, len(rows))
	bySerial := make(map[string]model.ItemFields, len(rows))
	for _, row := range rows {
		row = trimFields(row)
		if err := validateFields(row); err != nil {
			result.Rejected = append(result.Rejected, Outcome{Serial: row.Serial, Err: err})
			continue
		}
		if _, seen := bySerial[row.Serial]; !seen {
			order = append(order, row.Serial)
		}
		bySerial[row.Serial] = row
	}

	for _, serial := range order {
		f := bySerial[serial]
		var (
			item   *model.Item
			action string
		)
		err := s.inTx(ctx, func(tx *sql.Tx) error {
			var err error
			item, action, err = s.importRow(ctx, tx, f)
			return err
		})
		if err != nil {
			s.logger.Error("import failed", zap.String("serial", serial), zap.Error(err))
			return result, fmt.Errorf("importing %s: %w", serial, err)
		}
		switch action {
		case model.EventCreated:
			result.Created = append(result.Created, *item)
		case model.EventUpdated:
			result.Updated = append(result.Updated, *item)
		case model.EventRevived:
			result.Revived = append(result.Revived, *item)
		}
	}

	s.logger.Info("inventory imported",
		zap.Int("created", len(result.Created)),
		zap.Int("updated", len(result.Updated)),
		zap.Int("revived", len(result.Revived)),
		zap.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

func (s *Service) importRow(ctx context.Context, tx *sql.Tx, f model.ItemFields) (*model.Item, string, error) {
	now := s.now()

	live, err := store.GetLiveItemBySerial(ctx, tx, f.Serial)
	if err != nil {
		return nil, "", err
	}
	if live != nil {
		if err := store.UpdateItemFields(ctx, tx, live.ID, f, now); err != nil {
			return nil, "", err
		}
		return s.finishImport(ctx, tx, live.ID, f.Serial, model.EventUpdated, now)
	}

	deleted, err := store.ListDeletedBySerial(ctx, tx, f.Serial)
	if err != nil {
		return nil, "", err
	}
	if len(deleted) > 0 {
		target := deleted[0]
		if err := store.RemoveDeletion(ctx, tx, target.ID); err != nil {
			return nil, "", err
		}
		if err := store.SetItemStatus(ctx, tx, target.ID, model.StatusDeleted, model.StatusOnHand, nil, now); err != nil {
			return nil, "", err
		}
		if err := store.UpdateItemFields(ctx, tx, target.ID, f, now); err != nil {
			return nil, "", err
		}
		return s.finishImport(ctx, tx, target.ID, f.Serial, model.EventRevived, now)
	}

	item, err := store.CreateItem(ctx, tx, f, now)
	if err != nil {
		return nil, "", err
	}
	return s.finishImport(ctx, tx, item.ID, f.Serial, model.EventCreated, now)
}

func (s *Service) finishImport(ctx context.Context, tx *sql.Tx, id int64, serial, action string, now time.Time) (*model.Item, string, error) {
	err := store.RecordEvent(ctx, tx, model.Event{ItemID: id, Serial: serial, Action: action, OccurredAt: now})
	if err != nil {
		return nil, "", err
	}
	item, err := store.GetItem(ctx, tx, id)
	if err != nil {
		return nil, "", err
	}
	return item, action, nil
}
