package energy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lox/campuswatt/internal/models"
)

const (
	timestampColumn = "Timestamp"
	usageColumn     = "Total Electric Usage (C)"
	buildingColumn  = "Building"
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/06 15:04",
}

// ParseResult carries the rows plus how many were dropped.
type ParseResult struct {
	Readings []models.EnergyReading
	Skipped  int
}

// Parse reads the meter export. Header names are matched after trimming, so
// " Total Electric Usage (C)" works. Rows with a missing or malformed
// timestamp or usage are skipped. Rows without a Building column go to
// defaultBuilding. Usage is rounded to two decimals and the result is sorted
// by timestamp.
func Parse(r io.Reader, defaultBuilding string, loc *time.Location) (ParseResult, error) {
	if loc == nil {
		loc = time.UTC
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ParseResult{}, nil
	}
	if err != nil {
		return ParseResult{}, fmt.Errorf("read header: %w", err)
	}

	tsCol, usageCol, buildingCol := -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case timestampColumn:
			tsCol = i
		case usageColumn:
			usageCol = i
		case buildingColumn:
			buildingCol = i
		}
	}
	if tsCol < 0 || usageCol < 0 {
		return ParseResult{}, fmt.Errorf("missing %q or %q column", timestampColumn, usageColumn)
	}

	var res ParseResult
	var id int64 = 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read row: %w", err)
		}

		if tsCol >= len(rec) || usageCol >= len(rec) {
			res.Skipped++
			continue
		}
		ts, ok := parseTimestamp(strings.TrimSpace(rec[tsCol]), loc)
		if !ok {
			res.Skipped++
			continue
		}
		kwh, err := strconv.ParseFloat(strings.TrimSpace(rec[usageCol]), 64)
		if err != nil || math.IsNaN(kwh) || math.IsInf(kwh, 0) {
			res.Skipped++
			continue
		}

		building := defaultBuilding
		if buildingCol >= 0 && buildingCol < len(rec) {
			if b := strings.TrimSpace(rec[buildingCol]); b != "" {
				building = b
			}
		}

		res.Readings = append(res.Readings, models.EnergyReading{
			ID:         id,
			Timestamp:  ts,
			BuildingID: building,
			KWh:        round2(kwh),
		})
		id++
	}

	sort.SliceStable(res.Readings, func(i, j int) bool {
		return res.Readings[i].Timestamp.Before(res.Readings[j].Timestamp)
	})
	return res, nil
}

func parseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
