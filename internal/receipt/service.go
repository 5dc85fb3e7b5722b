// Package receipt produces DA Form 2062 hand receipts from the current
// custody state of one custodian.
package receipt

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erazemk/handreceipt/internal/calibration"
	"github.com/erazemk/handreceipt/internal/custody"
	"github.com/erazemk/handreceipt/internal/layout"
	"github.com/erazemk/handreceipt/internal/model"
	"github.com/erazemk/handreceipt/internal/store"
)

// Renderer draws pages onto the template, in order.
type Renderer interface {
	RenderPage(ctx context.Context, page layout.Page) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, page layout.Page) error

// RenderPage calls f.
func (f RendererFunc) RenderPage(ctx context.Context, page layout.Page) error {
	return f(ctx, page)
}

// ProfileSource supplies the calibration to lay out with.
type ProfileSource interface {
	Get() calibration.Profile
}

// Service builds receipts.
type Service struct {
	db       *sql.DB
	profiles ProfileSource
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for dates and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a receipt service.
func NewService(db *sql.DB, profiles ProfileSource, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{db: db, profiles: profiles, logger: logger, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// snapshot reads the custodian and its issued items in one transaction.
func (s *Service) snapshot(ctx context.Context, name string) (*model.Custodian, []model.Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning snapshot: %w", err)
	}
	defer tx.Rollback()

	c, err := store.GetCustodianByName(ctx, tx, name)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, fmt.Errorf("custodian %q: %w", name, custody.ErrNotFound)
	}
	items, err := store.ListIssuedItems(ctx, tx, c.ID)
	if err != nil {
		return nil, nil, err
	}
	return c, items, tx.Commit()
}

// Plan lays out the receipt for a custodian without rendering or
// recording it. A custodian holding nothing still gets one header-only
// page.
func (s *Service) Plan(ctx context.Context, custodian string) (Plan, error) {
	custodian = strings.TrimSpace(custodian)
	if custodian == "" {
		return Plan{}, fmt.Errorf("%w: custodian name is required", custody.ErrInvalidInput)
	}

	profile := s.profiles.Get()
	if err := profile.Validate(); err != nil {
		return Plan{}, err
	}

	c, items, err := s.snapshot(ctx, custodian)
	if err != nil {
		return Plan{}, err
	}

	header := layout.Header{From: c.IssuedBy, To: c.Name, Contact: c.Contact}
	rows := layout.Pack(items)
	pages, err := layout.Paginate(rows, header, profile)
	if err != nil {
		return Plan{}, err
	}

	now := s.now()
	return Plan{
		FileName:    layout.DocumentName(c.Name, now),
		Custodian:   c.Name,
		Header:      header,
		GeneratedAt: now,
		Profile:     profile,
		Rows:        rows,
		Pages:       pages,
	}, nil
}

// Generate plans the receipt for a custodian and renders it with r.
func (s *Service) Generate(ctx context.Context, custodian string, r Renderer) (Plan, *model.Receipt, error) {
	plan, err := s.Plan(ctx, custodian)
	if err != nil {
		return Plan{}, nil, err
	}
	rec, err := s.Render(ctx, plan, r)
	if err != nil {
		return plan, nil, err
	}
	return plan, rec, nil
}

// Render hands every page of plan to r in order and records the receipt.
// A nil r only records. Nothing is recorded when a page fails.
func (s *Service) Render(ctx context.Context, plan Plan, r Renderer) (*model.Receipt, error) {
	if r != nil {
		for _, page := range plan.Pages {
			if err := r.RenderPage(ctx, page); err != nil {
				return nil, fmt.Errorf("rendering page %d/%d: %w", page.Index, page.Total, err)
			}
		}
	}

	digest, err := plan.Digest()
	if err != nil {
		return nil, err
	}
	c, err := store.GetCustodianByName(ctx, s.db, plan.Custodian)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("custodian %q: %w", plan.Custodian, custody.ErrNotFound)
	}

	rec := model.Receipt{
		ID:            uuid.NewString(),
		CustodianID:   c.ID,
		FileName:      plan.FileName,
		Pages:         len(plan.Pages),
		Rows:          len(plan.Rows),
		Digest:        digest,
		GeneratedAt:   plan.GeneratedAt,
		CustodianName: c.Name,
	}
	if err := store.CreateReceipt(ctx, s.db, rec); err != nil {
		return nil, err
	}

	s.logger.Info("receipt generated",
		zap.String("custodian", c.Name),
		zap.String("file", rec.FileName),
		zap.Int("pages", rec.Pages),
		zap.Int("units", plan.Units()),
	)
	return &rec, nil
}

// History lists receipts generated for a custodian, newest first. An
// empty name lists all.
func (s *Service) History(ctx context.Context, custodian string) ([]model.Receipt, error) {
	var id int64
	if name := strings.TrimSpace(custodian); name != "" {
		c, err := store.GetCustodianByName(ctx, s.db, name)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, fmt.Errorf("custodian %q: %w", name, custody.ErrNotFound)
		}
		id = c.ID
	}
	return store.ListReceipts(ctx, s.db, id)
}
