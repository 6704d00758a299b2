package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lox/campuswatt/internal/models"
	"github.com/lox/campuswatt/internal/savings"
	"github.com/lox/campuswatt/internal/schedule"
)

// Site describes one campus: its air handlers, the class schedule to seed,
// tariffs and the scheduling knobs. It is read from an optional YAML file;
// anything the file leaves out keeps the value from Default.
type Site struct {
	DefaultBuilding string                `yaml:"default_building"`
	DefaultDate     string                `yaml:"default_date"`
	Units           []models.AHUUnit      `yaml:"units"`
	Classes         []models.ClassSession `yaml:"classes"`
	RateTiers       []models.RateTier     `yaml:"rate_tiers"`
	Savings         SavingsConfig         `yaml:"savings"`
	Schedule        ScheduleConfig        `yaml:"schedule"`
}

type SavingsConfig struct {
	Rate              float64            `yaml:"rate"`
	DefaultKWhPerSlot float64            `yaml:"default_kwh_per_slot"`
	KWhPerSlot        map[string]float64 `yaml:"kwh_per_slot"`
}

type ScheduleConfig struct {
	// Window is how many slots the run view covers. 12 reproduces the legacy
	// 07:00-12:30 view.
	Window      int           `yaml:"window"`
	PrecoolLead time.Duration `yaml:"precool_lead"`
}

// Default mirrors the demo campus: buildings 14, 26 and 52.
func Default() Site {
	return Site{
		DefaultBuilding: "14",
		Units: []models.AHUUnit{
			{ID: 1, Name: "AHU-1", BuildingID: "14", Zones: mustZones("201-210")},
			{ID: 2, Name: "AHU-2", BuildingID: "14", Zones: mustZones("211-220")},
			{ID: 3, Name: "AHU-3", BuildingID: "14", Zones: mustZones("101-160")},
			{ID: 4, Name: "AHU-4", BuildingID: "26", Zones: mustZones("101-120", "201-230")},
			{ID: 5, Name: "AHU-5", BuildingID: "52", Zones: mustZones("301-320")},
		},
		Classes: []models.ClassSession{
			{ID: 1, Date: "2025-08-01", StartTime: "09:00", ClassName: "Computer Science 101", RoomNumber: "201", BuildingID: "14"},
			{ID: 2, Date: "2025-08-01", StartTime: "10:30", ClassName: "Mathematics 150", RoomNumber: "105", BuildingID: "26"},
			{ID: 3, Date: "2025-08-01", StartTime: "13:00", ClassName: "Physics 211", RoomNumber: "301", BuildingID: "52"},
			{ID: 4, Date: "2025-08-01", StartTime: "14:30", ClassName: "Engineering Design", RoomNumber: "150", BuildingID: "14"},
			{ID: 5, Date: "2025-08-01", StartTime: "16:00", ClassName: "Data Structures", RoomNumber: "220", BuildingID: "26"},
		},
		RateTiers: []models.RateTier{
			{ID: 1, Tier: "Peak", PricePerKWh: 0.32, Description: "Weekdays 4 PM - 9 PM"},
			{ID: 2, Tier: "Off-Peak", PricePerKWh: 0.18, Description: "Weekdays 9 PM - 4 PM, All Weekend"},
			{ID: 3, Tier: "Super Off-Peak", PricePerKWh: 0.12, Description: "Weekdays 12 AM - 6 AM"},
			{ID: 4, Tier: "Partial Peak", PricePerKWh: 0.25, Description: "Weekdays 8 AM - 4 PM"},
			{ID: 5, Tier: "Holiday", PricePerKWh: 0.15, Description: "Federal holidays and weekends"},
		},
		Savings: SavingsConfig{
			Rate:              0.12,
			DefaultKWhPerSlot: savings.DefaultKWhPerSlot,
			KWhPerSlot: map[string]float64{
				"AHU-1": 45,
				"AHU-2": 38,
				"AHU-3": 52,
				"AHU-4": 35,
				"AHU-5": 48,
			},
		},
		Schedule: ScheduleConfig{
			Window: schedule.SlotCount,
		},
	}
}

// Load reads path over the defaults. An empty path returns Default().
func Load(path string) (Site, error) {
	site := Default()
	if path == "" {
		return site, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Site{}, fmt.Errorf("config: read file: %w", err)
	}
	if err := yaml.Unmarshal(data, &site); err != nil {
		return Site{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := site.Validate(); err != nil {
		return Site{}, err
	}
	return site, nil
}

func (s Site) Validate() error {
	var errs []error
	if s.Schedule.Window < 0 || s.Schedule.Window > schedule.SlotCount {
		errs = append(errs, fmt.Errorf("schedule.window must be between 0 and %d, got %d", schedule.SlotCount, s.Schedule.Window))
	}
	if s.Schedule.PrecoolLead < 0 {
		errs = append(errs, fmt.Errorf("schedule.precool_lead must not be negative"))
	}
	if s.Savings.Rate < 0 {
		errs = append(errs, fmt.Errorf("savings.rate must not be negative"))
	}
	if s.Savings.DefaultKWhPerSlot < 0 {
		errs = append(errs, fmt.Errorf("savings.default_kwh_per_slot must not be negative"))
	}
	for name, kwh := range s.Savings.KWhPerSlot {
		if kwh < 0 {
			errs = append(errs, fmt.Errorf("savings.kwh_per_slot: %s must not be negative", name))
		}
	}
	if s.DefaultDate != "" {
		if _, err := time.Parse(models.DateLayout, s.DefaultDate); err != nil {
			errs = append(errs, fmt.Errorf("default_date: %w", err))
		}
	}
	seen := make(map[int64]bool, len(s.Units))
	for _, u := range s.Units {
		if seen[u.ID] {
			errs = append(errs, fmt.Errorf("units: duplicate id %d", u.ID))
		}
		seen[u.ID] = true
		for _, z := range u.Zones {
			if z.Empty() {
				errs = append(errs, fmt.Errorf("units: %s has an invalid zone", u.Name))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (s Site) SavingsTable() savings.Table {
	return savings.NewTable(s.Savings.KWhPerSlot, s.Savings.DefaultKWhPerSlot, s.Savings.Rate)
}

func (s Site) Policy() schedule.Policy {
	return schedule.Policy{PrecoolLead: s.Schedule.PrecoolLead}
}

func mustZones(specs ...string) []models.RoomRange {
	zones := make([]models.RoomRange, 0, len(specs))
	for _, spec := range specs {
		z, ok := models.ParseRoomRange(spec)
		if !ok {
			panic("config: bad zone " + spec)
		}
		zones = append(zones, z)
	}
	return zones
}
