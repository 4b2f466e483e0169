package theme

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/Canopy/backend/internal/domain/area"
)

// Seeder prepares a fresh store: system areas plus the configured theme.
type Seeder struct {
	areas       *area.Registry
	coordinator *Coordinator
	themes      area.ThemeSource
	logger      *zap.Logger
}

// NewSeeder creates a seeder
func NewSeeder(areas *area.Registry, coordinator *Coordinator, themes area.ThemeSource, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{areas: areas, coordinator: coordinator, themes: themes, logger: logger}
}

// Seed registers every system area and activates the current theme. Safe to
// run on every startup.
func (s *Seeder) Seed(ctx context.Context) error {
	created := 0
	for _, info := range area.SystemAreas {
		ok, err := s.areas.RegisterArea(ctx, info.ID, area.KindSystem)
		if err != nil {
			return fmt.Errorf("failed to seed area %s: %w", info.ID, err)
		}
		if ok {
			created++
		}
	}

	current, err := s.themes.CurrentTheme(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve current theme: %w", err)
	}
	if _, err := s.coordinator.ActivateTheme(ctx, current); err != nil {
		return fmt.Errorf("failed to activate theme %s: %w", current, err)
	}

	s.logger.Info("Seeding complete",
		zap.Int("system_areas_created", created),
		zap.String("theme", current),
	)
	return nil
}
