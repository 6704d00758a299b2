package ingest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/campuswatt/internal/energy"
	"github.com/lox/campuswatt/internal/models"
)

func TestValidateClass(t *testing.T) {
	tests := []struct {
		name      string
		class     models.ClassSession
		wantFlags []string
	}{
		{
			name:      "valid class - no flags",
			class:     models.ClassSession{Date: "2025-08-01", StartTime: "09:00", RoomNumber: "205", BuildingID: "14"},
			wantFlags: nil,
		},
		{
			name:      "bad date",
			class:     models.ClassSession{Date: "08/01/2025", StartTime: "09:00", RoomNumber: "205", BuildingID: "14"},
			wantFlags: []string{FlagDateInvalid},
		},
		{
			name:      "single digit hour",
			class:     models.ClassSession{Date: "2025-08-01", StartTime: "9:00", RoomNumber: "205", BuildingID: "14"},
			wantFlags: []string{FlagTimeInvalid},
		},
		{
			name:      "ends before the first slot",
			class:     models.ClassSession{Date: "2025-08-01", StartTime: "05:30", RoomNumber: "205", BuildingID: "14"},
			wantFlags: []string{FlagTimeOutOfWindow},
		},
		{
			name:      "overlaps the first slot - valid",
			class:     models.ClassSession{Date: "2025-08-01", StartTime: "05:31", RoomNumber: "205", BuildingID: "14"},
			wantFlags: nil,
		},
		{
			name:      "starts after the last slot",
			class:     models.ClassSession{Date: "2025-08-01", StartTime: "22:01", RoomNumber: "205", BuildingID: "14"},
			wantFlags: []string{FlagTimeOutOfWindow},
		},
		{
			name:      "room and building missing",
			class:     models.ClassSession{Date: "2025-08-01", StartTime: "09:00", RoomNumber: "Lab A"},
			wantFlags: []string{FlagRoomInvalid, FlagBuildingMissing},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := ValidateClass(&tt.class)
			sort.Strings(flags)
			want := append([]string(nil), tt.wantFlags...)
			sort.Strings(want)
			if len(want) == 0 {
				assert.Empty(t, flags)
				return
			}
			assert.Equal(t, want, flags)
		})
	}
}

func TestUnusable(t *testing.T) {
	assert.False(t, Unusable(nil))
	assert.False(t, Unusable([]string{FlagRoomInvalid, FlagTimeInvalid}))
	assert.True(t, Unusable([]string{FlagRoomInvalid, FlagDateInvalid}))
	assert.True(t, Unusable([]string{FlagBuildingMissing}))
}

const classCSV = `id,date,time,className,roomNumber,buildingNumber
1,2025-08-01,09:00,Computer Science 101,201,14
2,2025-08-01,10:30,Mathematics 150,105,26
3,not-a-date,13:00,Physics 211,301,52
4,2025-08-01,14:30,Engineering Design,Lab,14
5,2025-08-01,16:00,Data Structures,220,
`

func TestParseClasses(t *testing.T) {
	sessions, res, err := ParseClasses(strings.NewReader(classCSV), nil)
	require.NoError(t, err)

	assert.Equal(t, ImportResult{Imported: 3, Skipped: 2, Flagged: 1}, res)
	require.Len(t, sessions, 3)
	assert.Equal(t, models.ClassSession{
		ID:              1,
		Date:            "2025-08-01",
		StartTime:       "09:00",
		DurationMinutes: 90,
		ClassName:       "Computer Science 101",
		RoomNumber:      "201",
		BuildingID:      "14",
	}, sessions[0])
	assert.Equal(t, "Lab", sessions[2].RoomNumber, "flagged rows are kept")
}

func TestParseClasses_ReorderedColumns(t *testing.T) {
	in := "buildingNumber,roomNumber,time,date\n14,205,09:00,2025-08-01\n"
	sessions, _, err := ParseClasses(strings.NewReader(in), nil)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "205", sessions[0].RoomNumber)
	assert.Equal(t, "14", sessions[0].BuildingID)
	assert.Zero(t, sessions[0].ID)
}

func TestParseClasses_MissingColumn(t *testing.T) {
	_, _, err := ParseClasses(strings.NewReader("date,time,roomNumber\n2025-08-01,09:00,205\n"), nil)
	assert.ErrorContains(t, err, "buildingNumber")
}

type fakeStore struct {
	classes []models.ClassSession
	units   []models.AHUUnit
	tiers   []models.RateTier
	err     error
}

func (f *fakeStore) ReplaceClasses(ctx context.Context, sessions []models.ClassSession) error {
	if f.err != nil {
		return f.err
	}
	f.classes = sessions
	return nil
}

func (f *fakeStore) UpsertUnit(ctx context.Context, u models.AHUUnit) error {
	f.units = append(f.units, u)
	return nil
}

func (f *fakeStore) UpsertRateTier(ctx context.Context, t models.RateTier) error {
	f.tiers = append(f.tiers, t)
	return nil
}

func TestImportClasses(t *testing.T) {
	store := &fakeStore{}
	res, err := ImportClasses(context.Background(), store, strings.NewReader(classCSV), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)
	assert.Len(t, store.classes, 3)

	store.err = errors.New("disk full")
	_, err = ImportClasses(context.Background(), store, strings.NewReader(classCSV), nil)
	assert.ErrorIs(t, err, store.err)
}

func TestSeed(t *testing.T) {
	store := &fakeStore{}
	data := SeedData{
		Units:     []models.AHUUnit{{ID: 1, Name: "AHU-1", BuildingID: "14"}},
		RateTiers: []models.RateTier{{ID: 1, Tier: "Peak", PricePerKWh: 0.32}},
	}
	require.NoError(t, Seed(context.Background(), store, data, nil))
	assert.Len(t, store.units, 1)
	assert.Len(t, store.tiers, 1)
	assert.Nil(t, store.classes, "no classes leaves the schedule alone")
}

type countingLoader struct {
	mu    sync.Mutex
	calls int
}

func (c *countingLoader) Load(ctx context.Context, force bool) energy.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return energy.Snapshot{Cached: c.calls > 1}
}

func (c *countingLoader) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestWatcher_PollsUntilCancelled(t *testing.T) {
	loader := &countingLoader{}
	w := NewWatcher(loader, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return loader.count() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "watcher did not stop")
	}
}
