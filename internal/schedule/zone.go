package schedule

import (
	"github.com/lox/campuswatt/internal/models"
)

// ParseRoomNumber reads the leading integer of a room number ("205B" is 205).
// Anything without a leading integer is room 0, which no real zone contains.
func ParseRoomNumber(room string) int {
	i := 0
	for i < len(room) && (room[i] == ' ' || room[i] == '\t' || room[i] == '\n' || room[i] == '\r') {
		i++
	}
	neg := false
	if i < len(room) && (room[i] == '+' || room[i] == '-') {
		neg = room[i] == '-'
		i++
	}
	n, digits := 0, 0
	for ; i < len(room) && room[i] >= '0' && room[i] <= '9'; i++ {
		if n > 1<<30 {
			break
		}
		n = n*10 + int(room[i]-'0')
		digits++
	}
	if digits == 0 {
		return 0
	}
	if neg {
		return -n
	}
	return n
}

// InZone reports whether the room falls inside any of the unit's ranges.
func InZone(room string, zones []models.RoomRange) bool {
	n := ParseRoomNumber(room)
	for _, z := range zones {
		if z.Contains(n) {
			return true
		}
	}
	return false
}
