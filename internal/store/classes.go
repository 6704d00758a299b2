package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lox/campuswatt/internal/models"
)

// ReplaceClasses swaps the whole class table for sessions in one transaction.
func (s *Store) ReplaceClasses(ctx context.Context, sessions []models.ClassSession) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM class_sessions`); err != nil {
		return fmt.Errorf("clear classes: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO class_sessions (date, start_time, duration_minutes, class_name, room_number, building)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range sessions {
		if _, err := stmt.ExecContext(ctx, c.Date, c.StartTime, duration(c), c.ClassName, c.RoomNumber, c.BuildingID); err != nil {
			return fmt.Errorf("insert class %s %s: %w", c.Date, c.StartTime, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE meta SET value = value + 1 WHERE key = 'revision'`); err != nil {
		return fmt.Errorf("bump revision: %w", err)
	}
	return tx.Commit()
}

// GetClasses filters by building and date. Empty arguments match everything.
func (s *Store) GetClasses(ctx context.Context, building, date string) ([]models.ClassSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, start_time, duration_minutes, COALESCE(class_name, ''), room_number, building
		FROM class_sessions
		WHERE (? = '' OR building = ?) AND (? = '' OR date = ?)
		ORDER BY date, start_time, id
	`, building, building, date, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []models.ClassSession
	for rows.Next() {
		var c models.ClassSession
		if err := rows.Scan(&c.ID, &c.Date, &c.StartTime, &c.DurationMinutes, &c.ClassName, &c.RoomNumber, &c.BuildingID); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// LatestClassDate returns the most recent date with any class, or "" when
// there are none.
func (s *Store) LatestClassDate(ctx context.Context, building string) (string, error) {
	var date sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(date) FROM class_sessions WHERE (? = '' OR building = ?)
	`, building, building).Scan(&date)
	if err != nil {
		return "", err
	}
	return date.String, nil
}

func duration(c models.ClassSession) int {
	if c.DurationMinutes <= 0 {
		return models.ClassDurationMinutes
	}
	return c.DurationMinutes
}
