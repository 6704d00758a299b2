package campus

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lox/campuswatt/internal/energy"
	"github.com/lox/campuswatt/internal/models"
	"github.com/lox/campuswatt/internal/savings"
)

type Usage struct {
	Readings     []models.EnergyReading
	Current      savings.Window
	PreviousYear savings.Window
	FromFallback bool
}

// EnergyUsage returns a building's readings in the timeframe containing its
// latest reading, plus the same window a year earlier.
func (c *Campus) EnergyUsage(ctx context.Context, building string, tf savings.Timeframe, reload bool) Usage {
	snap := c.energy.Load(ctx, reload)
	readings := energy.ForBuilding(snap.Readings, c.Building(building))

	u := Usage{Readings: []models.EnergyReading{}, FromFallback: snap.FromFallback}
	ref, ok := savings.Latest(readings)
	if !ok {
		return u
	}
	u.Current = savings.CurrentWindow(ref, tf, c.cfg.Location)
	u.PreviousYear = savings.PriorYearWindow(ref, tf, c.cfg.Location)
	u.Readings = savings.Filter(readings, u.PreviousYear, u.Current)
	return u
}

// Savings compares this period's usage with the same period last year.
func (c *Campus) Savings(ctx context.Context, building string, tf savings.Timeframe) savings.Comparison {
	snap := c.energy.Load(ctx, false)
	readings := energy.ForBuilding(snap.Readings, c.Building(building))
	return savings.Compare(readings, tf, c.cfg.Table.Rate, c.cfg.Location)
}

type CSVInfo struct {
	Path         string
	ModifiedAt   time.Time
	LoadedAt     time.Time
	FromFallback bool
	Summary      energy.Summary
}

func (c *Campus) CSVInfo(ctx context.Context) CSVInfo {
	snap := c.energy.Load(ctx, false)
	return CSVInfo{
		Path:         snap.Path,
		ModifiedAt:   snap.ModifiedAt,
		LoadedAt:     snap.LoadedAt,
		FromFallback: snap.FromFallback,
		Summary:      energy.Summarize(snap.Readings),
	}
}

// SetCSVPath repoints the energy cache and loads the new file immediately.
func (c *Campus) SetCSVPath(ctx context.Context, path string) (CSVInfo, error) {
	if err := c.energy.SetPath(path); err != nil {
		return CSVInfo{}, fmt.Errorf("set csv path: %w", err)
	}
	snap := c.energy.Load(ctx, true)
	if snap.FromFallback {
		c.logger.Warn("new csv path unreadable, serving fallback data", zap.String("path", path))
	}
	return CSVInfo{
		Path:         snap.Path,
		ModifiedAt:   snap.ModifiedAt,
		LoadedAt:     snap.LoadedAt,
		FromFallback: snap.FromFallback,
		Summary:      energy.Summarize(snap.Readings),
	}, nil
}

// CSVPath is where the energy cache currently reads from.
func (c *Campus) CSVPath() string {
	return c.energy.Path()
}
