package theme

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/Canopy/backend/internal/domain/area"
	"github.com/GriffinCanCode/Canopy/backend/internal/domain/extension"
	"github.com/GriffinCanCode/Canopy/backend/internal/domain/manifest"
	"github.com/GriffinCanCode/Canopy/backend/internal/domain/widget"
	"github.com/GriffinCanCode/Canopy/backend/internal/infrastructure/cache"
	"github.com/GriffinCanCode/Canopy/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/errs"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/paths"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
	"github.com/GriffinCanCode/Canopy/backend/internal/store/memstore"
)

type fixture struct {
	backend     *memstore.Store
	widgets     *widget.Store
	areas       *area.Registry
	registry    *Registry
	coordinator *Coordinator
	metrics     *monitoring.Metrics
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newFixture(t *testing.T, current string) *fixture {
	t.Helper()
	dir := t.TempDir()
	layout := paths.NewLayout(dir, filepath.Join(dir, "wwwroot"))

	writeFile(t, filepath.Join(layout.Themes(), "Classic", "theme.json"), `{
		"name": "Classic",
		"widgetAreas": [
			{"id": "Footer", "name": "Footer"},
			{"id": "footer", "name": "Footer again"},
			{"id": "blog-sidebar1", "name": "Sidebar"}
		]
	}`)
	writeFile(t, filepath.Join(layout.Themes(), "clarity", "theme.yaml"), "name: Clarity\nwidgetAreas: []\n")
	writeFile(t, filepath.Join(layout.Themes(), "broken", "theme.json"), `{"name": "Broken", "widgetAreas": [{"id": "", "name": "Blank"}]}`)
	writeFile(t, filepath.Join(layout.Themes(), "odd", "theme.json"), `{
		"name": "Odd",
		"widgetAreas": [
			{"id": "footer", "name": "Footer"},
			{"id": "side bar!", "name": "Sidebar"}
		]
	}`)

	backend := memstore.New()
	metrics := monitoring.NewMetrics()
	manager := cache.NewManager(cache.NewMemory(), metrics, nil)
	themeManifests := manifest.NewThemeStore(layout.Themes(), manager)
	widgetManifests := manifest.NewWidgetStore(layout.Widgets(), manager, 0)
	installer, err := extension.NewInstaller(layout, "", metrics, nil)
	require.NoError(t, err)

	widgets := widget.NewStore(backend, widget.DefaultTypes(), nil)
	areas := area.NewRegistry(area.Config{
		Backend:         backend,
		Widgets:         widgets,
		WidgetManifests: widgetManifests,
		ThemeManifests:  themeManifests,
		Themes:          area.StaticTheme(current),
		Metrics:         metrics,
	})
	registry := NewRegistry(themeManifests, backend, installer, metrics, nil)
	return &fixture{
		backend:     backend,
		widgets:     widgets,
		areas:       areas,
		registry:    registry,
		coordinator: NewCoordinator(backend, registry, areas, metrics, nil),
		metrics:     metrics,
	}
}

func themeAreaKeys(t *testing.T, backend store.Backend) []string {
	t.Helper()
	metas, err := backend.List(context.Background(), store.MetaTypeWidgetAreaByTheme)
	require.NoError(t, err)
	keys := make([]string, 0, len(metas))
	for _, m := range metas {
		keys = append(keys, m.Key)
	}
	return keys
}

func TestActivateTheme(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "classic")

	act, err := f.coordinator.ActivateTheme(ctx, "CLASSIC")
	require.NoError(t, err)
	assert.Equal(t, "classic", act.Folder)
	assert.True(t, act.Registered)
	assert.Equal(t, []string{"footer"}, act.AreasCreated)

	// Duplicate ids collapse and system areas are not shadowed
	assert.Equal(t, []string{"classic-footer"}, themeAreaKeys(t, f.backend))

	marker, err := f.backend.Get(ctx, "classic", store.MetaTypeTheme)
	require.NoError(t, err)
	th, err := f.registry.GetExtension(ctx, marker.ID)
	require.NoError(t, err)
	assert.Equal(t, &Theme{ID: marker.ID, Folder: "classic"}, th)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ThemeActivations.WithLabelValues(OutcomeRegistered)))
}

func TestActivateThemeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "classic")

	_, err := f.coordinator.ActivateTheme(ctx, "classic")
	require.NoError(t, err)
	before := themeAreaKeys(t, f.backend)

	act, err := f.coordinator.ActivateTheme(ctx, "Classic")
	require.NoError(t, err)
	assert.False(t, act.Registered)
	assert.Empty(t, act.AreasCreated)
	assert.Equal(t, before, themeAreaKeys(t, f.backend))

	markers, err := f.backend.List(ctx, store.MetaTypeTheme)
	require.NoError(t, err)
	assert.Len(t, markers, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ThemeActivations.WithLabelValues(OutcomeUnchanged)))
}

func TestReactivationKeepsPlacements(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "classic")

	_, err := f.coordinator.ActivateTheme(ctx, "classic")
	require.NoError(t, err)

	id, err := f.widgets.Create(ctx, widget.RecentBlogPostsFolder)
	require.NoError(t, err)
	_, err = f.areas.AddWidgetToArea(ctx, id, "footer", 0)
	require.NoError(t, err)

	// Switching away and back must not reset the footer
	_, err = f.coordinator.ActivateTheme(ctx, "clarity")
	require.NoError(t, err)
	_, err = f.coordinator.ActivateTheme(ctx, "classic")
	require.NoError(t, err)

	footer, err := f.areas.GetArea(ctx, "footer")
	require.NoError(t, err)
	require.Len(t, footer.Widgets, 1)
	assert.Equal(t, id, footer.Widgets[0].ID)
	assert.Equal(t, []int64{id}, footer.WidgetIDs)
}

func TestActivateThemeErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "classic")

	t.Run("invalid folder", func(t *testing.T) {
		_, err := f.coordinator.ActivateTheme(ctx, "../classic")
		assert.True(t, errs.IsValidation(err))
		markers, err := f.backend.List(ctx, store.MetaTypeTheme)
		require.NoError(t, err)
		assert.Empty(t, markers)
	})

	t.Run("hyphenated folder", func(t *testing.T) {
		_, err := f.coordinator.ActivateTheme(ctx, "clarity-dark")
		assert.True(t, errs.IsValidation(err))
	})

	t.Run("not installed", func(t *testing.T) {
		_, err := f.coordinator.ActivateTheme(ctx, "missing")
		assert.True(t, errs.IsNotFound(err))
	})

	t.Run("empty area id", func(t *testing.T) {
		_, err := f.coordinator.ActivateTheme(ctx, "broken")
		assert.True(t, errs.IsValidation(err))
		assert.Empty(t, themeAreaKeys(t, f.backend))
	})

	t.Run("malformed area id after a valid one", func(t *testing.T) {
		_, err := f.coordinator.ActivateTheme(ctx, "odd")
		assert.True(t, errs.IsValidation(err))
		assert.ErrorContains(t, err, "side bar!")
		assert.Empty(t, themeAreaKeys(t, f.backend))
	})

	assert.Equal(t, 5.0, testutil.ToFloat64(f.metrics.ThemeActivations.WithLabelValues(OutcomeFailed)))
}

func TestSeeder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "Classic")
	seeder := NewSeeder(f.areas, f.coordinator, area.StaticTheme("Classic"), nil)

	require.NoError(t, seeder.Seed(ctx))
	require.NoError(t, seeder.Seed(ctx))

	system, err := f.backend.List(ctx, store.MetaTypeWidgetAreaBySystem)
	require.NoError(t, err)
	assert.Len(t, system, len(area.SystemAreas))

	areas, err := f.areas.GetCurrentThemeAreas(ctx)
	require.NoError(t, err)
	assert.Len(t, areas, len(area.SystemAreas)+1)
	assert.Equal(t, "footer", areas[len(areas)-1].ID)
}

func TestSeederFailsForMissingTheme(t *testing.T) {
	f := newFixture(t, "missing")
	seeder := NewSeeder(f.areas, f.coordinator, area.StaticTheme("missing"), nil)
	err := seeder.Seed(context.Background())
	assert.True(t, errs.IsNotFound(err))
}
