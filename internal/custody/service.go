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

// Service applies custody transitions. Every serial of a batch runs in its
// own transaction, so a rejected serial never undoes the others.
type Service struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a custody service.
func NewService(db *sql.DB, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{db: db, logger: logger, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type itemFunc func(ctx context.Context, tx *sql.Tx, serial string, now time.Time) (*model.Item, error)

func (s *Service) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// batch runs fn once per distinct serial. Domain rejections are recorded in
// the result; a storage failure stops the batch and is returned along with
// the outcomes gathered so far.
func (s *Service) batch(ctx context.Context, op string, serials []string, fn itemFunc) (BatchResult, error) {
	var result BatchResult
	for _, serial := range normalizeSerials(serials) {
		var item *model.Item
		err := s.inTx(ctx, func(tx *sql.Tx) error {
			var err error
			item, err = fn(ctx, tx, serial, s.now())
			return err
		})
		if err != nil && !isDomainError(err) {
			s.logger.Error(op+" failed", zap.String("serial", serial), zap.Error(err))
			return result, fmt.Errorf("%s %s: %w", op, serial, err)
		}
		if err != nil {
			item = nil
			s.logger.Debug(op+" rejected", zap.String("serial", serial), zap.String("reason", Reason(err)))
		}
		result.record(serial, item, err)
	}

	s.logger.Info(op+" applied",
		zap.Int("succeeded", len(result.Succeeded())),
		zap.Int("rejected", len(result.Rejected())),
	)
	return result, nil
}

// liveItem loads the live item for serial and checks that action applies.
func liveItem(ctx context.Context, q store.Querier, serial string, action Action) (*model.Item, error) {
	item, err := store.GetLiveItemBySerial(ctx, q, serial)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	if err := CheckTransition(item.Status, action); err != nil {
		return nil, err
	}
	return item, nil
}

// Availability splits serials for an issue check.
type Availability struct {
	Available     []model.Item
	NotFound      []string
	AlreadyIssued []string
}

// ValidateOnHand classifies serials as available to issue, unknown or
// already issued. It changes nothing.
func (s *Service) ValidateOnHand(ctx context.Context, serials []string) (Availability, error) {
	var a Availability
	for _, serial := range normalizeSerials(serials) {
		item, err := store.GetLiveItemBySerial(ctx, s.db, serial)
		if err != nil {
			return a, fmt.Errorf("validating %s: %w", serial, err)
		}
		switch {
		case item == nil:
			a.NotFound = append(a.NotFound, serial)
		case item.IsOnHand():
			a.Available = append(a.Available, *item)
		default:
			a.AlreadyIssued = append(a.AlreadyIssued, serial)
		}
	}
	return a, nil
}

// Issuance splits serials for a return check.
type Issuance struct {
	Issued    []model.Item
	NotIssued []string
}

// ValidateIssued classifies serials as currently issued or not. Unknown
// serials count as not issued.
func (s *Service) ValidateIssued(ctx context.Context, serials []string) (Issuance, error) {
	var r Issuance
	for _, serial := range normalizeSerials(serials) {
		item, err := store.GetLiveItemBySerial(ctx, s.db, serial)
		if err != nil {
			return r, fmt.Errorf("validating %s: %w", serial, err)
		}
		if item != nil {
			if _, ok := item.CustodianID(); ok {
				r.Issued = append(r.Issued, *item)
				continue
			}
		}
		r.NotIssued = append(r.NotIssued, serial)
	}
	return r, nil
}

// Issue hands each on-hand serial to the named custodian. The custodian is
// created on first use and its metadata is overwritten with the values
// given here.
func (s *Service) Issue(ctx context.Context, serials []string, custodian, issuedBy, contact string) (BatchResult, error) {
	custodian = strings.TrimSpace(custodian)
	issuedBy = strings.TrimSpace(issuedBy)
	contact = strings.TrimSpace(contact)
	if custodian == "" {
		return BatchResult{}, fmt.Errorf("%w: custodian name is required", ErrInvalidInput)
	}

	return s.batch(ctx, "issue", serials, func(ctx context.Context, tx *sql.Tx, serial string, now time.Time) (*model.Item, error) {
		item, err := liveItem(ctx, tx, serial, ActionIssue)
		if err != nil {
			return nil, err
		}
		c, err := store.UpsertCustodian(ctx, tx, custodian, issuedBy, contact, now)
		if err != nil {
			return nil, err
		}
		if err := store.SetItemStatus(ctx, tx, item.ID, model.StatusOnHand, model.StatusIssued, &c.ID, now); err != nil {
			return nil, err
		}
		err = store.RecordEvent(ctx, tx, model.Event{
			ItemID: item.ID, Serial: serial, Action: model.EventIssued,
			Custodian: custodian, IssuedBy: issuedBy, OccurredAt: now,
		})
		if err != nil {
			return nil, err
		}
		return store.GetItem(ctx, tx, item.ID)
	})
}

// Return brings each issued serial back on hand. Custodian records stay
// even when they no longer hold anything.
func (s *Service) Return(ctx context.Context, serials []string) (BatchResult, error) {
	return s.batch(ctx, "return", serials, func(ctx context.Context, tx *sql.Tx, serial string, now time.Time) (*model.Item, error) {
		item, err := liveItem(ctx, tx, serial, ActionReturn)
		if err != nil {
			return nil, err
		}
		if err := store.SetItemStatus(ctx, tx, item.ID, model.StatusIssued, model.StatusOnHand, nil, now); err != nil {
			return nil, err
		}
		err = store.RecordEvent(ctx, tx, model.Event{
			ItemID: item.ID, Serial: serial, Action: model.EventReturned,
			Custodian: item.CustodianName, OccurredAt: now,
		})
		if err != nil {
			return nil, err
		}
		return store.GetItem(ctx, tx, item.ID)
	})
}

// UpdateCustodianMetadata sets who issues to a custodian and how to reach
// them, creating the custodian when unknown. Items are untouched.
func (s *Service) UpdateCustodianMetadata(ctx context.Context, name, issuedBy, contact string) (*model.Custodian, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: custodian name is required", ErrInvalidInput)
	}
	c, err := store.UpsertCustodian(ctx, s.db, name, strings.TrimSpace(issuedBy), strings.TrimSpace(contact), s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("custodian updated", zap.String("custodian", c.Name))
	return c, nil
}

// Custodians lists custodians currently holding at least one item.
func (s *Service) Custodians(ctx context.Context) ([]model.Custodian, error) {
	return store.ListCustodians(ctx, s.db)
}
