package energy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthetic(t *testing.T) {
	a := Synthetic(time.UTC)
	b := Synthetic(time.UTC)
	require.Equal(t, a, b, "synthetic data must be deterministic")

	// 3 buildings * 2 days * 96 intervals
	require.Len(t, a, 576)

	perBuilding := map[string]int{}
	for i, r := range a {
		perBuilding[r.BuildingID]++
		assert.GreaterOrEqual(t, r.KWh, 5.0)
		if i > 0 {
			assert.False(t, r.Timestamp.Before(a[i-1].Timestamp), "sorted by time")
		}
	}
	assert.Equal(t, map[string]int{"14": 192, "26": 192, "52": 192}, perBuilding)

	s := Summarize(a)
	assert.Equal(t, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), s.Start)
	assert.Equal(t, time.Date(2025, 8, 1, 23, 45, 0, 0, time.UTC), s.End)
	assert.Equal(t, []string{"14", "26", "52"}, s.Buildings)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.TotalRecords)
	assert.Empty(t, s.Buildings)
	assert.Zero(t, s.AvgUsage)
}

func TestForBuilding(t *testing.T) {
	all := Synthetic(time.UTC)
	only := ForBuilding(all, "26")
	assert.Len(t, only, 192)
	for _, r := range only {
		assert.Equal(t, "26", r.BuildingID)
	}
	assert.Len(t, ForBuilding(all, ""), len(all))
}
