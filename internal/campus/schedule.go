package campus

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lox/campuswatt/internal/metrics"
	"github.com/lox/campuswatt/internal/models"
	"github.com/lox/campuswatt/internal/savings"
	"github.com/lox/campuswatt/internal/schedcache"
	"github.com/lox/campuswatt/internal/schedule"
)

// Schedule derives the on/off grid for a building's units on date, optionally
// narrowed to one system. Results are cached per store revision.
func (c *Campus) Schedule(ctx context.Context, building, system, date string) ([]models.ScheduleEntry, error) {
	building = c.Building(building)
	date, err := c.ResolveDate(ctx, building, date)
	if err != nil {
		return nil, err
	}

	entries, err := c.derive(ctx, building, date)
	if err != nil {
		return nil, err
	}
	out := schedule.FilterSystem(entries, system)
	if out == nil {
		out = []models.ScheduleEntry{}
	}
	return out, nil
}

func (c *Campus) derive(ctx context.Context, building, date string) ([]models.ScheduleEntry, error) {
	rev, err := c.store.Revision(ctx)
	if err != nil {
		return nil, fmt.Errorf("store revision: %w", err)
	}
	key := schedcache.Key{Building: building, Date: date, Revision: rev}
	if lead := c.cfg.Policy.PrecoolLead; lead > 0 {
		key.Variant = "lead" + lead.String()
	}

	if c.cache != nil {
		cached, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn("schedule cache get failed", zap.String("key", key.String()), zap.Error(err))
		} else if ok {
			metrics.SchedulesDerived.WithLabelValues("hit").Inc()
			return cached, nil
		}
	}

	units, err := c.store.GetUnits(ctx, building)
	if err != nil {
		return nil, fmt.Errorf("get units: %w", err)
	}
	classes, err := c.store.GetClasses(ctx, building, date)
	if err != nil {
		return nil, fmt.Errorf("get classes: %w", err)
	}

	entries := schedule.Derive(classes, units, date, schedule.Options{Policy: c.cfg.Policy})
	metrics.SchedulesDerived.WithLabelValues("miss").Inc()
	c.logger.Debug("derived schedule",
		zap.String("building", building),
		zap.String("date", date),
		zap.Int("units", len(units)),
		zap.Int("classes", len(classes)))

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, entries); err != nil {
			c.logger.Warn("schedule cache set failed", zap.String("key", key.String()), zap.Error(err))
		}
	}
	return entries, nil
}

// UnitRuns is one unit's compressed schedule with its savings.
type UnitRuns struct {
	AHUID     int64                  `json:"ahuSystemId"`
	Name      string                 `json:"systemName"`
	Runs      []models.CompressedRun `json:"runs"`
	Estimates []savings.Estimate     `json:"-"`
	Summary   savings.UnitSummary    `json:"-"`
}

type RunsReport struct {
	Building     string
	Date         string
	Window       int
	Units        []UnitRuns
	KWhSaved     decimal.Decimal
	DollarsSaved decimal.Decimal
}

// Runs compresses each unit's schedule over window slots (0 uses the
// configured window) and prices the off time.
func (c *Campus) Runs(ctx context.Context, building, system, date string, window int) (RunsReport, error) {
	entries, err := c.Schedule(ctx, building, system, date)
	if err != nil {
		return RunsReport{}, err
	}
	if window == 0 {
		window = c.cfg.Window
	}
	window = schedule.NormalizeWindow(window)

	report := RunsReport{
		Building:     c.Building(building),
		Window:       window,
		Units:        []UnitRuns{},
		KWhSaved:     decimal.Zero,
		DollarsSaved: decimal.Zero,
	}
	if len(entries) > 0 {
		report.Date = entries[0].Date
	} else if report.Date, err = c.ResolveDate(ctx, report.Building, date); err != nil {
		return RunsReport{}, err
	}

	for _, unitEntries := range schedule.SplitByUnit(entries) {
		name := unitEntries[0].SystemName
		runs := schedule.Compress(unitEntries, window)
		ests := c.cfg.Table.EstimateRuns(name, runs)
		kwh, dollars := savings.Totals(ests)
		report.KWhSaved = report.KWhSaved.Add(kwh)
		report.DollarsSaved = report.DollarsSaved.Add(dollars)
		report.Units = append(report.Units, UnitRuns{
			AHUID:     unitEntries[0].AHUID,
			Name:      name,
			Runs:      runs,
			Estimates: ests,
			Summary:   c.cfg.Table.Summarize(name, runs),
		})
	}
	return report, nil
}
