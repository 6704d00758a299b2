package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClassDurationMinutes is the occupancy length assumed for every class.
const ClassDurationMinutes = 90

// DateLayout is the calendar-day format used on the wire and in the store.
const DateLayout = "2006-01-02"

type ClassSession struct {
	ID              int64  `json:"id" yaml:"id"`
	Date            string `json:"date" yaml:"date"` // YYYY-MM-DD
	StartTime       string `json:"time" yaml:"time"` // HH:MM, 24 hour
	DurationMinutes int    `json:"durationMinutes" yaml:"-"`
	ClassName       string `json:"className,omitempty" yaml:"class_name"`
	RoomNumber      string `json:"roomNumber" yaml:"room"`
	BuildingID      string `json:"buildingNumber" yaml:"building"`
}

// RoomRange is a closed interval of room numbers. An empty range (Low > High)
// matches nothing and is what an unparseable zone string becomes.
type RoomRange struct {
	Low  int
	High int
}

func (r RoomRange) Empty() bool {
	return r.Low > r.High
}

func (r RoomRange) Contains(room int) bool {
	return room >= r.Low && room <= r.High
}

func (r RoomRange) String() string {
	if r.Empty() {
		return ""
	}
	return fmt.Sprintf("%d-%d", r.Low, r.High)
}

// ParseRoomRange parses "NNN-NNN" (or a bare "NNN"). On failure it returns an
// empty range and false.
func ParseRoomRange(s string) (RoomRange, bool) {
	s = strings.TrimSpace(s)
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		hi = lo
	}
	low, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return RoomRange{Low: 1, High: 0}, false
	}
	high, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return RoomRange{Low: 1, High: 0}, false
	}
	if low > high {
		return RoomRange{Low: 1, High: 0}, false
	}
	return RoomRange{Low: low, High: high}, true
}

func (r RoomRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *RoomRange) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*r, _ = ParseRoomRange(s)
	return nil
}

// MarshalYAML and UnmarshalYAML keep the site file in the same "NNN-NNN" form.
func (r RoomRange) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}

func (r *RoomRange) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	*r, _ = ParseRoomRange(s)
	return nil
}

type AHUUnit struct {
	ID         int64       `json:"id" yaml:"id"`
	Name       string      `json:"systemName" yaml:"name"`
	BuildingID string      `json:"buildingNumber" yaml:"building"`
	Zones      []RoomRange `json:"zones" yaml:"zones"`
}

type ScheduleEntry struct {
	ID             int64  `json:"id"`
	AHUID          int64  `json:"ahuSystemId"`
	BuildingID     string `json:"buildingNumber"`
	SystemName     string `json:"systemName"`
	TimeSlot       string `json:"timeSlot"` // HH:MM
	SlotIndex      int    `json:"-"`
	ShouldBeOn     bool   `json:"shouldBeOn"`
	HasActiveClass bool   `json:"hasActiveClass"`
	Date           string `json:"date"`
}

type CompressedRun struct {
	AHUID          int64  `json:"ahuSystemId"`
	StartSlot      int    `json:"startIndex"`
	EndSlot        int    `json:"endIndex"`
	Span           int    `json:"span"`
	ShouldBeOn     bool   `json:"shouldBeOn"`
	HasActiveClass bool   `json:"hasClass"`
	TimeRange      string `json:"timeRange"`
}

type EnergyReading struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"dateTime"`
	BuildingID string    `json:"buildingNumber"`
	KWh        float64   `json:"energyUsedKwh"`
}

type RateTier struct {
	ID          int64   `json:"id" yaml:"id"`
	Tier        string  `json:"rateTier" yaml:"tier"`
	PricePerKWh float64 `json:"pricePerKwh" yaml:"price_per_kwh"`
	Description string  `json:"description" yaml:"description"`
}

// CSVLoad records one attempt to (re)load the energy CSV.
type CSVLoad struct {
	ID           int64
	Path         string
	ModifiedAt   time.Time
	LoadedAt     time.Time
	Rows         int
	UsedFallback bool
	Error        string
}
