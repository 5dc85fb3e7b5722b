package calibration

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/erazemk/handreceipt/internal/store"
)

// Active is the process-wide profile. Readers always see a whole profile;
// Save and Reset persist first and then swap.
type Active struct {
	db      *sql.DB
	logger  *zap.Logger
	current atomic.Pointer[Profile]
}

// NewActive returns an Active holding the default profile until Load.
func NewActive(db *sql.DB, logger *zap.Logger) *Active {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Active{db: db, logger: logger}
	p := Default()
	a.current.Store(&p)
	return a
}

// Load seeds missing parameters with defaults and activates the stored
// profile. A stored profile that cannot drive a layout is left in place and
// the defaults are activated until a valid profile is saved.
func (a *Active) Load(ctx context.Context) error {
	if err := store.SeedSettings(ctx, a.db, Default().Params()); err != nil {
		return fmt.Errorf("seeding calibration: %w", err)
	}
	params, err := store.GetSettings(ctx, a.db, SettingsPrefix)
	if err != nil {
		return fmt.Errorf("loading calibration: %w", err)
	}
	p, err := FromParams(params)
	if err == nil {
		err = p.Validate()
	}
	if err != nil {
		a.logger.Warn("stored calibration is invalid, using defaults", zap.Error(err))
		p = Default()
	}
	a.current.Store(&p)
	a.logger.Debug("calibration loaded", zap.Int("rows_per_page", p.RowsPerPage))
	return nil
}

// Get returns a copy of the active profile.
func (a *Active) Get() Profile {
	return *a.current.Load()
}

// Save validates, persists and activates p.
func (a *Active) Save(ctx context.Context, p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := store.PutSettings(ctx, a.db, p.Params()); err != nil {
		return fmt.Errorf("saving calibration: %w", err)
	}
	a.current.Store(&p)
	a.logger.Info("calibration saved")
	return nil
}

// Set changes one parameter of the active profile and saves it.
func (a *Active) Set(ctx context.Context, key, value string) (Profile, error) {
	p := a.Get()
	if err := p.SetParam(key, value); err != nil {
		return Profile{}, err
	}
	if err := a.Save(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Reset restores and activates the built-in defaults.
func (a *Active) Reset(ctx context.Context) (Profile, error) {
	p := Default()
	if err := a.Save(ctx, p); err != nil {
		return Profile{}, err
	}
	a.logger.Info("calibration reset to defaults")
	return p, nil
}
