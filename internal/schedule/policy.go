package schedule

import "time"

// Policy turns one unit's per-slot occupancy into on/off decisions.
// The zero value runs the unit exactly when a class is active.
type Policy struct {
	// PrecoolLead switches a unit on this long before an occupied slot.
	// It is rounded down to whole slots.
	PrecoolLead time.Duration
}

func (p Policy) leadSlots() int {
	if p.PrecoolLead <= 0 {
		return 0
	}
	return int(p.PrecoolLead / (SlotMinutes * time.Minute))
}

// Apply returns the ShouldBeOn decision for each slot.
func (p Policy) Apply(active []bool) []bool {
	lead := p.leadSlots()
	out := make([]bool, len(active))
	for i := range active {
		for j := i; j <= i+lead && j < len(active); j++ {
			if active[j] {
				out[i] = true
				break
			}
		}
	}
	return out
}
