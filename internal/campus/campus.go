// Package campus joins the reference store, the energy CSV cache and the
// schedule engine into the reads the dashboard needs.
package campus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lox/campuswatt/internal/energy"
	"github.com/lox/campuswatt/internal/models"
	"github.com/lox/campuswatt/internal/savings"
	"github.com/lox/campuswatt/internal/schedcache"
	"github.com/lox/campuswatt/internal/schedule"
)

// ErrInvalidDate is returned for dates that are not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date")

// Store is the reference data the facade reads. *store.Store implements it.
type Store interface {
	GetUnits(ctx context.Context, building string) ([]models.AHUUnit, error)
	GetClasses(ctx context.Context, building, date string) ([]models.ClassSession, error)
	LatestClassDate(ctx context.Context, building string) (string, error)
	GetRateTiers(ctx context.Context) ([]models.RateTier, error)
	Revision(ctx context.Context) (int64, error)
}

// Energy is satisfied by *energy.Cache.
type Energy interface {
	Load(ctx context.Context, force bool) energy.Snapshot
	SetPath(path string) error
	Path() string
}

type Config struct {
	DefaultBuilding string
	DefaultDate     string
	Window          int
	Policy          schedule.Policy
	Table           savings.Table
	Location        *time.Location
}

type Campus struct {
	store  Store
	energy Energy
	cache  schedcache.Cache
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// New builds the facade. cache may be nil to always derive.
func New(store Store, en Energy, cache schedcache.Cache, cfg Config, logger *zap.Logger) *Campus {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Table.PerSlot == nil {
		cfg.Table = savings.DefaultTable()
	}
	cfg.Window = schedule.NormalizeWindow(cfg.Window)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Campus{
		store:  store,
		energy: en,
		cache:  cache,
		cfg:    cfg,
		logger: logger.Named("campus"),
		now:    time.Now,
	}
}

func (c *Campus) Location() *time.Location { return c.cfg.Location }
func (c *Campus) Window() int              { return c.cfg.Window }
func (c *Campus) Table() savings.Table     { return c.cfg.Table }

// Building returns b, or the configured default building when b is empty.
func (c *Campus) Building(b string) string {
	if b = strings.TrimSpace(b); b != "" {
		return b
	}
	return c.cfg.DefaultBuilding
}

func (c *Campus) Units(ctx context.Context, building string) ([]models.AHUUnit, error) {
	units, err := c.store.GetUnits(ctx, building)
	if err != nil {
		return nil, fmt.Errorf("get units: %w", err)
	}
	if units == nil {
		units = []models.AHUUnit{}
	}
	return units, nil
}

func (c *Campus) Classes(ctx context.Context, building, date string) ([]models.ClassSession, error) {
	if date != "" {
		if _, err := time.Parse(models.DateLayout, date); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
		}
	}
	classes, err := c.store.GetClasses(ctx, building, date)
	if err != nil {
		return nil, fmt.Errorf("get classes: %w", err)
	}
	if classes == nil {
		classes = []models.ClassSession{}
	}
	return classes, nil
}

func (c *Campus) RateTiers(ctx context.Context) ([]models.RateTier, error) {
	tiers, err := c.store.GetRateTiers(ctx)
	if err != nil {
		return nil, fmt.Errorf("get rate tiers: %w", err)
	}
	if tiers == nil {
		tiers = []models.RateTier{}
	}
	return tiers, nil
}

// ResolveDate validates date, or picks one when it is empty: the configured
// default date, then the latest day with classes, then today.
func (c *Campus) ResolveDate(ctx context.Context, building, date string) (string, error) {
	if date = strings.TrimSpace(date); date != "" {
		if _, err := time.Parse(models.DateLayout, date); err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
		}
		return date, nil
	}
	if c.cfg.DefaultDate != "" {
		return c.cfg.DefaultDate, nil
	}
	latest, err := c.store.LatestClassDate(ctx, building)
	if err != nil {
		return "", fmt.Errorf("latest class date: %w", err)
	}
	if latest != "" {
		return latest, nil
	}
	return c.now().In(c.cfg.Location).Format(models.DateLayout), nil
}

// Revision is the reference data revision; it changes whenever units or
// classes do.
func (c *Campus) Revision(ctx context.Context) (int64, error) {
	return c.store.Revision(ctx)
}
