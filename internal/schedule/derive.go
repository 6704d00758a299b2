package schedule

import (
	"github.com/lox/campuswatt/internal/models"
)

type Options struct {
	Policy Policy
}

// Derive builds the day's on/off schedule: one entry per (unit, slot), grouped
// by building in the order buildings first appear among units, then by unit
// declaration order, then chronologically. A slot is occupied when any class
// in the unit's building sits in one of its zones during that slot.
//
// Derive never fails; malformed rooms and times simply contribute nothing.
func Derive(classes []models.ClassSession, units []models.AHUUnit, date string, opts Options) []models.ScheduleEntry {
	byBuilding := make(map[string][]models.ClassSession)
	for _, c := range classes {
		byBuilding[c.BuildingID] = append(byBuilding[c.BuildingID], c)
	}

	var buildings []string
	unitsByBuilding := make(map[string][]models.AHUUnit)
	for _, u := range units {
		if _, seen := unitsByBuilding[u.BuildingID]; !seen {
			buildings = append(buildings, u.BuildingID)
		}
		unitsByBuilding[u.BuildingID] = append(unitsByBuilding[u.BuildingID], u)
	}

	slots := Slots()
	entries := make([]models.ScheduleEntry, 0, len(units)*len(slots))
	var nextID int64 = 1

	for _, b := range buildings {
		for _, u := range unitsByBuilding[b] {
			active := occupancy(u, byBuilding[b], slots)
			on := opts.Policy.Apply(active)
			for i, slot := range slots {
				entries = append(entries, models.ScheduleEntry{
					ID:             nextID,
					AHUID:          u.ID,
					BuildingID:     u.BuildingID,
					SystemName:     u.Name,
					TimeSlot:       slot.String(),
					SlotIndex:      i,
					ShouldBeOn:     on[i],
					HasActiveClass: active[i],
					Date:           date,
				})
				nextID++
			}
		}
	}
	return entries
}

// occupancy folds every class's contribution into one boolean per slot.
func occupancy(u models.AHUUnit, classes []models.ClassSession, slots []TimeSlot) []bool {
	active := make([]bool, len(slots))
	if len(u.Zones) == 0 {
		return active
	}
	for _, c := range classes {
		if !InZone(c.RoomNumber, u.Zones) {
			continue
		}
		for i, slot := range slots {
			active[i] = active[i] || ClassActiveInSlot(c, slot)
		}
	}
	return active
}

// FilterSystem keeps only the entries of the named unit. An empty name keeps all.
func FilterSystem(entries []models.ScheduleEntry, system string) []models.ScheduleEntry {
	if system == "" {
		return entries
	}
	out := make([]models.ScheduleEntry, 0, SlotCount)
	for _, e := range entries {
		if e.SystemName == system {
			out = append(out, e)
		}
	}
	return out
}

// SplitByUnit groups entries per AHU, preserving first-seen unit order.
func SplitByUnit(entries []models.ScheduleEntry) [][]models.ScheduleEntry {
	index := make(map[int64]int)
	var groups [][]models.ScheduleEntry
	for _, e := range entries {
		i, ok := index[e.AHUID]
		if !ok {
			i = len(groups)
			index[e.AHUID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], e)
	}
	return groups
}
