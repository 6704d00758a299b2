package campus

import (
	"context"
	"sort"

	"github.com/lox/campuswatt/internal/models"
)

type ClassSummary struct {
	Count     int      `json:"count"`
	Buildings []string `json:"buildings"`
	Dates     []string `json:"dates"`
}

type EnergySummary struct {
	Count            int      `json:"count"`
	Buildings        []string `json:"buildings"`
	TotalEnergyKWh   float64  `json:"totalEnergyKwh"`
	AverageEnergyKWh float64  `json:"averageEnergyKwh"`
	FromFallback     bool     `json:"fromFallback"`
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type RateSummary struct {
	Count      int        `json:"count"`
	Tiers      []string   `json:"tiers"`
	PriceRange PriceRange `json:"priceRange"`
}

type DataSummary struct {
	ClassSchedules ClassSummary  `json:"classSchedules"`
	EnergyUsage    EnergySummary `json:"energyUsage"`
	Rates          RateSummary   `json:"rates"`
}

// Summary describes everything the dashboard has loaded.
func (c *Campus) Summary(ctx context.Context) (DataSummary, error) {
	classes, err := c.Classes(ctx, "", "")
	if err != nil {
		return DataSummary{}, err
	}
	tiers, err := c.RateTiers(ctx)
	if err != nil {
		return DataSummary{}, err
	}
	snap := c.energy.Load(ctx, false)

	var s DataSummary
	s.ClassSchedules = ClassSummary{
		Count:     len(classes),
		Buildings: distinct(classes, func(cs models.ClassSession) string { return cs.BuildingID }),
		Dates:     distinct(classes, func(cs models.ClassSession) string { return cs.Date }),
	}

	s.EnergyUsage = EnergySummary{
		Count:        len(snap.Readings),
		Buildings:    distinct(snap.Readings, func(r models.EnergyReading) string { return r.BuildingID }),
		FromFallback: snap.FromFallback,
	}
	for _, r := range snap.Readings {
		s.EnergyUsage.TotalEnergyKWh += r.KWh
	}
	if n := len(snap.Readings); n > 0 {
		s.EnergyUsage.AverageEnergyKWh = s.EnergyUsage.TotalEnergyKWh / float64(n)
	}

	s.Rates = RateSummary{Count: len(tiers), Tiers: make([]string, 0, len(tiers))}
	for i, t := range tiers {
		s.Rates.Tiers = append(s.Rates.Tiers, t.Tier)
		if i == 0 || t.PricePerKWh < s.Rates.PriceRange.Min {
			s.Rates.PriceRange.Min = t.PricePerKWh
		}
		if i == 0 || t.PricePerKWh > s.Rates.PriceRange.Max {
			s.Rates.PriceRange.Max = t.PricePerKWh
		}
	}
	return s, nil
}

func distinct[T any](items []T, key func(T) string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, it := range items {
		k := key(it)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
