package energy

import (
	"sort"
	"time"

	"github.com/lox/campuswatt/internal/models"
)

type Summary struct {
	TotalRecords int
	Start        time.Time
	End          time.Time
	Buildings    []string
	AvgUsage     float64
}

// Summarize describes a dataset for the CSV info panel.
func Summarize(readings []models.EnergyReading) Summary {
	if len(readings) == 0 {
		return Summary{Buildings: []string{}}
	}

	s := Summary{
		TotalRecords: len(readings),
		Start:        readings[0].Timestamp,
		End:          readings[0].Timestamp,
	}
	seen := make(map[string]bool)
	var total float64
	for _, r := range readings {
		if r.Timestamp.Before(s.Start) {
			s.Start = r.Timestamp
		}
		if r.Timestamp.After(s.End) {
			s.End = r.Timestamp
		}
		if !seen[r.BuildingID] {
			seen[r.BuildingID] = true
			s.Buildings = append(s.Buildings, r.BuildingID)
		}
		total += r.KWh
	}
	sort.Strings(s.Buildings)
	s.AvgUsage = total / float64(len(readings))
	return s
}

// ForBuilding keeps the readings of one building. Empty keeps all.
func ForBuilding(readings []models.EnergyReading, building string) []models.EnergyReading {
	if building == "" {
		return readings
	}
	out := make([]models.EnergyReading, 0, len(readings))
	for _, r := range readings {
		if r.BuildingID == building {
			out = append(out, r)
		}
	}
	return out
}
