package theme

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/Canopy/backend/internal/domain/area"
	"github.com/GriffinCanCode/Canopy/backend/internal/domain/manifest"
	"github.com/GriffinCanCode/Canopy/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/errs"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/utils"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
)

// Activation outcomes reported to metrics
const (
	OutcomeRegistered = "registered"
	OutcomeUnchanged  = "unchanged"
	OutcomeFailed     = "failed"
)

// Activation describes what ActivateTheme changed.
type Activation struct {
	Folder string `json:"folder"`
	// Registered is true when this call created the theme's marker
	Registered bool `json:"registered"`
	// AreasCreated lists theme areas provisioned by this call
	AreasCreated []string `json:"areasCreated"`
}

// Coordinator activates themes. It is the only writer of theme markers and
// theme area records.
type Coordinator struct {
	backend  store.Backend
	registry *Registry
	areas    *area.Registry
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewCoordinator creates a coordinator
func NewCoordinator(backend store.Backend, registry *Registry, areas *area.Registry, metrics *monitoring.Metrics, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		backend:  backend,
		registry: registry,
		areas:    areas,
		metrics:  metrics,
		logger:   logger,
	}
}

// ActivateTheme registers folder if unseen and provisions the areas its
// manifest declares. Areas that already exist keep their widgets, so
// activating again changes nothing.
func (c *Coordinator) ActivateTheme(ctx context.Context, folder string) (act *Activation, err error) {
	timer := monitoring.NewTimer(c.metrics, "theme", "activate")
	defer func() {
		timer.Stop(err)
		c.recordOutcome(act, err)
	}()

	if !c.registry.IsValidExtensionFolder(folder) {
		return nil, errs.Validation("theme.activate", "invalid theme folder %q", folder)
	}
	folder = strings.ToLower(folder)
	act = &Activation{Folder: folder, AreasCreated: []string{}}

	act.Registered, err = c.register(ctx, folder)
	if err != nil {
		return nil, err
	}

	manifests, err := c.registry.GetManifests(ctx)
	if err != nil {
		return nil, err
	}
	m, ok := manifest.FindTheme(manifests, folder)
	if !ok {
		return nil, errs.NotFound("theme.activate", "theme %q is not installed", folder)
	}
	// Every declared id is checked before the first area is provisioned
	for _, a := range m.WidgetAreas {
		if strings.TrimSpace(a.ID) == "" {
			return nil, errs.Validation("theme.activate", "theme %q declares an area with an empty id", folder)
		}
		if err := utils.ValidateAreaID(a.ID); err != nil {
			return nil, errs.Validation("theme.activate", "theme %q: %v", folder, err)
		}
	}

	for _, a := range m.WidgetAreas {
		// System areas take precedence and are never shadowed
		if area.IsSystemArea(a.ID) {
			continue
		}
		exists, err := c.areas.ThemeAreaExists(ctx, folder, a.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		created, err := c.areas.RegisterThemeArea(ctx, folder, a.ID)
		if err != nil {
			return nil, err
		}
		if created {
			act.AreasCreated = append(act.AreasCreated, a.ID)
		}
	}

	c.logger.Info("Theme activated",
		zap.String("folder", folder),
		zap.Bool("registered", act.Registered),
		zap.Strings("areas_created", act.AreasCreated),
	)
	return act, nil
}

// register creates the theme marker unless it exists
func (c *Coordinator) register(ctx context.Context, folder string) (bool, error) {
	_, err := c.backend.Get(ctx, folder, store.MetaTypeTheme)
	if err == nil {
		return false, nil
	}
	if !errs.IsNotFound(err) {
		return false, err
	}

	value, err := store.Encode(Theme{Folder: folder})
	if err != nil {
		return false, err
	}
	_, err = c.backend.Create(ctx, &store.Meta{Key: folder, Value: value, Type: store.MetaTypeTheme})
	if errs.IsConflict(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to register theme %s: %w", folder, err)
	}
	c.logger.Info("Theme registered", zap.String("folder", folder))
	return true, nil
}

func (c *Coordinator) recordOutcome(act *Activation, err error) {
	if c.metrics == nil {
		return
	}
	switch {
	case err != nil:
		c.metrics.IncThemeActivation(OutcomeFailed)
	case act.Registered || len(act.AreasCreated) > 0:
		c.metrics.IncThemeActivation(OutcomeRegistered)
	default:
		c.metrics.IncThemeActivation(OutcomeUnchanged)
	}
}
