package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lox/campuswatt/internal/models"
)

// Seeder is the part of the store that reference data is loaded into.
type Seeder interface {
	ClassWriter
	UpsertUnit(ctx context.Context, u models.AHUUnit) error
	UpsertRateTier(ctx context.Context, t models.RateTier) error
}

type SeedData struct {
	Units     []models.AHUUnit
	Classes   []models.ClassSession
	RateTiers []models.RateTier
}

// Seed writes units and rate tiers (upserted by id) and replaces the class
// schedule when any classes are given.
func Seed(ctx context.Context, s Seeder, data SeedData, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, u := range data.Units {
		if err := s.UpsertUnit(ctx, u); err != nil {
			return fmt.Errorf("seed unit %s: %w", u.Name, err)
		}
	}
	for _, t := range data.RateTiers {
		if err := s.UpsertRateTier(ctx, t); err != nil {
			return fmt.Errorf("seed rate tier %s: %w", t.Tier, err)
		}
	}
	if len(data.Classes) > 0 {
		if err := s.ReplaceClasses(ctx, data.Classes); err != nil {
			return fmt.Errorf("seed classes: %w", err)
		}
	}
	logger.Info("seeded reference data",
		zap.Int("units", len(data.Units)),
		zap.Int("classes", len(data.Classes)),
		zap.Int("rate_tiers", len(data.RateTiers)))
	return nil
}
