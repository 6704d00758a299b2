package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lox/campuswatt/internal/models"
)

// RecordCSVLoad appends one energy CSV load attempt to the history.
func (s *Store) RecordCSVLoad(ctx context.Context, load models.CSVLoad) error {
	var modified sql.NullTime
	if !load.ModifiedAt.IsZero() {
		modified = sql.NullTime{Time: load.ModifiedAt.UTC(), Valid: true}
	}
	var errMsg sql.NullString
	if load.Error != "" {
		errMsg = sql.NullString{String: load.Error, Valid: true}
	}
	loadedAt := load.LoadedAt
	if loadedAt.IsZero() {
		loadedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO csv_loads (path, modified_at, loaded_at, row_count, used_fallback, error_message)
		VALUES (?, ?, ?, ?, ?, ?)
	`, load.Path, modified, loadedAt.UTC(), load.Rows, load.UsedFallback, errMsg)
	return err
}

// RecentCSVLoads returns the newest load attempts first.
func (s *Store) RecentCSVLoads(ctx context.Context, limit int) ([]models.CSVLoad, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, modified_at, loaded_at, row_count, used_fallback, error_message
		FROM csv_loads
		ORDER BY loaded_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loads []models.CSVLoad
	for rows.Next() {
		var l models.CSVLoad
		var modified sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&l.ID, &l.Path, &modified, &l.LoadedAt, &l.Rows, &l.UsedFallback, &errMsg); err != nil {
			return nil, err
		}
		if modified.Valid {
			l.ModifiedAt = modified.Time
		}
		l.Error = errMsg.String
		loads = append(loads, l)
	}
	return loads, rows.Err()
}
