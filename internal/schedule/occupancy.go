package schedule

import (
	"github.com/lox/campuswatt/internal/models"
)

// ClassActiveInSlot reports whether the class occupies its room at the slot,
// i.e. start <= slot < start+90min. Any per-class duration is ignored.
func ClassActiveInSlot(c models.ClassSession, slot TimeSlot) bool {
	start, ok := ParseClock(c.StartTime)
	if !ok {
		return false
	}
	t := int(slot)
	return t >= start && t < start+models.ClassDurationMinutes
}
