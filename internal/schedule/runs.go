package schedule

import (
	"github.com/lox/campuswatt/internal/models"
)

// Compress collapses one unit's entries into maximal runs of equal ShouldBeOn
// over the first window slots of the grid. Slots without an entry count as off.
// The spans of the returned runs always sum to the normalized window.
func Compress(entries []models.ScheduleEntry, window int) []models.CompressedRun {
	window = NormalizeWindow(window)

	type slotState struct{ on, class bool }
	states := make([]slotState, window)
	var ahuID int64
	for _, e := range entries {
		ahuID = e.AHUID
		i := e.SlotIndex
		if e.TimeSlot != "" && SlotAt(i).String() != e.TimeSlot {
			// Entries decoded from JSON carry only the label.
			var ok bool
			if i, ok = SlotIndex(e.TimeSlot); !ok {
				continue
			}
		}
		if i < 0 || i >= window {
			continue
		}
		states[i] = slotState{on: e.ShouldBeOn, class: e.HasActiveClass}
	}

	var runs []models.CompressedRun
	start := 0
	for i := 1; i <= window; i++ {
		if i < window && states[i].on == states[start].on {
			continue
		}
		runs = append(runs, models.CompressedRun{
			AHUID:          ahuID,
			StartSlot:      start,
			EndSlot:        i - 1,
			Span:           i - start,
			ShouldBeOn:     states[start].on,
			HasActiveClass: states[start].class,
			TimeRange:      SlotAt(start).String() + " - " + SlotAt(i-1).String(),
		})
		start = i
	}
	return runs
}

// OnSlots counts the slots a unit is scheduled on.
func OnSlots(entries []models.ScheduleEntry) int {
	n := 0
	for _, e := range entries {
		if e.ShouldBeOn {
			n++
		}
	}
	return n
}
