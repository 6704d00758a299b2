package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/lox/campuswatt/internal/models"
)

// ClassWriter is the part of the store the importer needs.
type ClassWriter interface {
	ReplaceClasses(ctx context.Context, sessions []models.ClassSession) error
}

type ImportResult struct {
	Imported int
	Skipped  int
	Flagged  int
}

var classColumns = []string{"date", "time", "roomNumber", "buildingNumber"}

// ParseClasses reads a class schedule export with the columns
// id,date,time,className,roomNumber,buildingNumber. Column order is taken from
// the header; id and className are optional.
func ParseClasses(r io.Reader, logger *zap.Logger) ([]models.ClassSession, ImportResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var res ImportResult

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, res, nil
	}
	if err != nil {
		return nil, res, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, c := range classColumns {
		if _, ok := cols[c]; !ok {
			return nil, res, fmt.Errorf("missing %q column", c)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var sessions []models.ClassSession
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, res, fmt.Errorf("read row: %w", err)
		}
		line++

		c := models.ClassSession{
			Date:            field(rec, "date"),
			StartTime:       field(rec, "time"),
			DurationMinutes: models.ClassDurationMinutes,
			ClassName:       field(rec, "className"),
			RoomNumber:      field(rec, "roomNumber"),
			BuildingID:      field(rec, "buildingNumber"),
		}
		if id, err := strconv.ParseInt(field(rec, "id"), 10, 64); err == nil {
			c.ID = id
		}

		flags := ValidateClass(&c)
		if Unusable(flags) {
			logger.Warn("skipping class row", zap.Int("line", line), zap.Strings("flags", flags))
			res.Skipped++
			continue
		}
		if len(flags) > 0 {
			logger.Debug("class row flagged", zap.Int("line", line), zap.Strings("flags", flags))
			res.Flagged++
		}
		sessions = append(sessions, c)
	}

	res.Imported = len(sessions)
	return sessions, res, nil
}

// ImportClasses parses r and replaces the stored class schedule with it.
func ImportClasses(ctx context.Context, w ClassWriter, r io.Reader, logger *zap.Logger) (ImportResult, error) {
	sessions, res, err := ParseClasses(r, logger)
	if err != nil {
		return res, err
	}
	if err := w.ReplaceClasses(ctx, sessions); err != nil {
		return res, fmt.Errorf("store classes: %w", err)
	}
	return res, nil
}
