package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/lox/campuswatt/internal/models"
)

// Store is the SQLite-backed reference data: AHU units, class sessions, rate
// tiers and the CSV load history.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

func New(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.Named("store")}
}

// Open opens a SQLite database at dsn and applies migrations. ":memory:" is
// pinned to one connection so every query sees the same database.
func Open(dsn string, logger *zap.Logger) (*Store, *sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	s := New(db, logger)
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return s, db, nil
}

func (s *Store) UpsertUnit(ctx context.Context, u models.AHUUnit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ahu_units (id, name, building, zones)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			building = excluded.building,
			zones = excluded.zones
	`, u.ID, u.Name, u.BuildingID, encodeZones(u.Zones))
	if err != nil {
		return fmt.Errorf("upsert unit %s: %w", u.Name, err)
	}
	return s.bumpRevision(ctx)
}

// GetUnits returns the units of one building in id order. An empty building
// returns every unit.
func (s *Store) GetUnits(ctx context.Context, building string) ([]models.AHUUnit, error) {
	query := `SELECT id, name, building, zones FROM ahu_units`
	var args []any
	if building != "" {
		query += ` WHERE building = ?`
		args = append(args, building)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []models.AHUUnit
	for rows.Next() {
		var u models.AHUUnit
		var zones string
		if err := rows.Scan(&u.ID, &u.Name, &u.BuildingID, &zones); err != nil {
			return nil, err
		}
		u.Zones = decodeZones(zones)
		units = append(units, u)
	}
	return units, rows.Err()
}

func (s *Store) UpsertRateTier(ctx context.Context, t models.RateTier) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rate_tiers (id, tier, price_per_kwh, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tier = excluded.tier,
			price_per_kwh = excluded.price_per_kwh,
			description = excluded.description
	`, t.ID, t.Tier, t.PricePerKWh, t.Description)
	return err
}

func (s *Store) GetRateTiers(ctx context.Context) ([]models.RateTier, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, tier, price_per_kwh, COALESCE(description, '') FROM rate_tiers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []models.RateTier
	for rows.Next() {
		var t models.RateTier
		if err := rows.Scan(&t.ID, &t.Tier, &t.PricePerKWh, &t.Description); err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

// Revision increases whenever units or classes change. Schedule caches key on it.
func (s *Store) Revision(ctx context.Context) (int64, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'revision'`).Scan(&rev)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return rev, err
}

func (s *Store) bumpRevision(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE meta SET value = value + 1 WHERE key = 'revision'`)
	return err
}

// Zones are stored as "201-210,211-220". Unparseable entries come back as
// empty ranges and match nothing.
func encodeZones(zones []models.RoomRange) string {
	parts := make([]string, 0, len(zones))
	for _, z := range zones {
		parts = append(parts, z.String())
	}
	return strings.Join(parts, ",")
}

func decodeZones(s string) []models.RoomRange {
	if s == "" {
		return []models.RoomRange{}
	}
	parts := strings.Split(s, ",")
	zones := make([]models.RoomRange, 0, len(parts))
	for _, p := range parts {
		z, _ := models.ParseRoomRange(p)
		zones = append(zones, z)
	}
	return zones
}
