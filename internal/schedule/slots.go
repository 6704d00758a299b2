package schedule

import (
	"fmt"
)

const (
	FirstSlot   TimeSlot = 7 * 60
	LastSlot    TimeSlot = 22 * 60
	SlotMinutes          = 30

	// SlotCount includes the 22:00 slot itself.
	SlotCount = int(LastSlot-FirstSlot)/SlotMinutes + 1

	// LegacyWindow is the morning-only window the original uptime chart showed.
	LegacyWindow = 12
)

// TimeSlot is a half-hour boundary expressed in minutes since midnight.
type TimeSlot int

func (t TimeSlot) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Slots returns the day's grid, 07:00 through 22:00 in chronological order.
func Slots() []TimeSlot {
	slots := make([]TimeSlot, 0, SlotCount)
	for t := FirstSlot; t <= LastSlot; t += SlotMinutes {
		slots = append(slots, t)
	}
	return slots
}

// SlotAt returns the slot with the given grid index.
func SlotAt(i int) TimeSlot {
	return FirstSlot + TimeSlot(i*SlotMinutes)
}

// SlotIndex maps an "HH:MM" label back onto the grid.
func SlotIndex(label string) (int, bool) {
	m, ok := ParseClock(label)
	if !ok {
		return 0, false
	}
	t := TimeSlot(m)
	if t < FirstSlot || t > LastSlot || (t-FirstSlot)%SlotMinutes != 0 {
		return 0, false
	}
	return int(t-FirstSlot) / SlotMinutes, true
}

// NormalizeWindow clamps a compression window to the grid; zero or negative
// means the whole day.
func NormalizeWindow(window int) int {
	if window <= 0 || window > SlotCount {
		return SlotCount
	}
	return window
}

// ParseClock parses a strict 24 hour "HH:MM" string into minutes since midnight.
func ParseClock(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	hh := int(s[0]-'0')*10 + int(s[1]-'0')
	mm := int(s[3]-'0')*10 + int(s[4]-'0')
	if hh > 23 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}
