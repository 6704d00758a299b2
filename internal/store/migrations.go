package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS ahu_units (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    building TEXT NOT NULL,
    zones TEXT NOT NULL DEFAULT '',
    UNIQUE(building, name)
);

CREATE TABLE IF NOT EXISTS class_sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    date TEXT NOT NULL,
    start_time TEXT NOT NULL,
    duration_minutes INTEGER NOT NULL DEFAULT 90,
    class_name TEXT,
    room_number TEXT NOT NULL,
    building TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_classes_building_date ON class_sessions(building, date);
`,
	},
	{
		Version:     2,
		Description: "Add csv_loads table for energy CSV load history",
		SQL: `
CREATE TABLE IF NOT EXISTS csv_loads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL,
    modified_at DATETIME,
    loaded_at DATETIME NOT NULL,
    row_count INTEGER NOT NULL DEFAULT 0,
    used_fallback BOOLEAN NOT NULL DEFAULT FALSE,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_csv_loads_loaded ON csv_loads(loaded_at);
`,
	},
	{
		Version:     3,
		Description: "Add rate_tiers table",
		SQL: `
CREATE TABLE IF NOT EXISTS rate_tiers (
    id INTEGER PRIMARY KEY,
    tier TEXT NOT NULL UNIQUE,
    price_per_kwh REAL NOT NULL,
    description TEXT
);
`,
	},
	{
		Version:     4,
		Description: "Add meta table for the reference data revision",
		SQL: `
CREATE TABLE IF NOT EXISTS meta (
    key TEXT PRIMARY KEY,
    value INTEGER NOT NULL
);

INSERT OR IGNORE INTO meta (key, value) VALUES ('revision', 0);
`,
	},
}

const migrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    description TEXT,
    applied_at DATETIME
)`

// Migrate applies every migration newer than the recorded schema version.
// Each one commits together with its schema_migrations row.
func (s *Store) Migrate() error {
	ctx := context.Background()
	if _, err := s.db.ExecContext(ctx, migrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := s.MigrationVersion()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) apply(ctx context.Context, m migration) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: begin: %w", m.Version, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
		m.Version, m.Description, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("migration %d: record: %w", m.Version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: commit: %w", m.Version, err)
	}

	s.logger.Info("applied migration", zap.Int("version", m.Version), zap.String("description", m.Description))
	return nil
}

// MigrationVersion is the newest applied migration, or 0 on a new database.
func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}
