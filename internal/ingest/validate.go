package ingest

import (
	"strings"
	"time"

	"github.com/lox/campuswatt/internal/models"
	"github.com/lox/campuswatt/internal/schedule"
)

const (
	FlagDateInvalid     = "date_invalid"
	FlagTimeInvalid     = "time_invalid"
	FlagTimeOutOfWindow = "time_out_of_window"
	FlagRoomInvalid     = "room_invalid"
	FlagBuildingMissing = "building_missing"
)

// ValidateClass flags problems with an imported class. Flags are advisory
// except FlagDateInvalid and FlagBuildingMissing, which make the row unusable.
func ValidateClass(c *models.ClassSession) []string {
	var flags []string

	if _, err := time.Parse(models.DateLayout, c.Date); err != nil {
		flags = append(flags, FlagDateInvalid)
	}

	start, ok := schedule.ParseClock(c.StartTime)
	if !ok {
		flags = append(flags, FlagTimeInvalid)
	} else if start+models.ClassDurationMinutes <= int(schedule.FirstSlot) || start > int(schedule.LastSlot) {
		flags = append(flags, FlagTimeOutOfWindow)
	}

	if schedule.ParseRoomNumber(c.RoomNumber) <= 0 {
		flags = append(flags, FlagRoomInvalid)
	}

	if strings.TrimSpace(c.BuildingID) == "" {
		flags = append(flags, FlagBuildingMissing)
	}

	return flags
}

// Unusable reports whether the flags rule the row out entirely.
func Unusable(flags []string) bool {
	for _, f := range flags {
		if f == FlagDateInvalid || f == FlagBuildingMissing {
			return true
		}
	}
	return false
}
