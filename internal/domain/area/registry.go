package area

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/Canopy/backend/internal/domain/manifest"
	"github.com/GriffinCanCode/Canopy/backend/internal/domain/widget"
	"github.com/GriffinCanCode/Canopy/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/errs"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/utils"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
)

// Widgets resolves widget instances by id
type Widgets interface {
	Get(ctx context.Context, id int64) (widget.Widget, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// Manifests lists installed manifests of one kind
type Manifests[M any] interface {
	List(ctx context.Context) ([]M, error)
}

// Registry manages area records and their widget order.
type Registry struct {
	backend         store.Backend
	widgets         Widgets
	widgetManifests Manifests[manifest.WidgetManifest]
	themeManifests  Manifests[manifest.ThemeManifest]
	themes          ThemeSource
	metrics         *monitoring.Metrics
	logger          *zap.Logger
}

// Config holds the collaborators of a Registry.
type Config struct {
	Backend         store.Backend
	Widgets         Widgets
	WidgetManifests Manifests[manifest.WidgetManifest]
	ThemeManifests  Manifests[manifest.ThemeManifest]
	Themes          ThemeSource
	Metrics         *monitoring.Metrics
	Logger          *zap.Logger
}

// NewRegistry creates an area registry
func NewRegistry(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		backend:         cfg.Backend,
		widgets:         cfg.Widgets,
		widgetManifests: cfg.WidgetManifests,
		themeManifests:  cfg.ThemeManifests,
		themes:          cfg.Themes,
		metrics:         cfg.Metrics,
		logger:          logger,
	}
}

// location is where an area's record lives
type location struct {
	id   string
	kind Kind
	key  string
}

func (l location) metaType() store.MetaType { return l.kind.MetaType() }

// locate maps an area id to its record. Non-system ids belong to the current theme.
func (r *Registry) locate(ctx context.Context, areaID string) (location, error) {
	id := strings.ToLower(strings.TrimSpace(areaID))
	if err := utils.ValidateAreaID(id); err != nil {
		return location{}, errs.Validation("area.locate", "%v", err)
	}
	if IsSystemArea(id) {
		return location{id: id, kind: KindSystem, key: id}, nil
	}
	theme, err := r.currentTheme(ctx)
	if err != nil {
		return location{}, err
	}
	return location{id: id, kind: KindTheme, key: ThemeKey(theme, id)}, nil
}

func (r *Registry) currentTheme(ctx context.Context) (string, error) {
	theme, err := r.themes.CurrentTheme(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve current theme: %w", err)
	}
	if theme == "" {
		return "", errs.Validation("area.theme", "no current theme")
	}
	return strings.ToLower(theme), nil
}

// RegisterArea creates an empty area if none exists. Theme areas are
// registered for the current theme. Reports whether a record was created.
func (r *Registry) RegisterArea(ctx context.Context, areaID string, kind Kind) (bool, error) {
	if !kind.Valid() {
		return false, errs.Validation("area.register", "unknown area kind %q", kind)
	}
	id := strings.ToLower(strings.TrimSpace(areaID))
	if err := utils.ValidateAreaID(id); err != nil {
		return false, errs.Validation("area.register", "%v", err)
	}
	if kind == KindSystem {
		return r.create(ctx, location{id: id, kind: KindSystem, key: id})
	}
	theme, err := r.currentTheme(ctx)
	if err != nil {
		return false, err
	}
	return r.RegisterThemeArea(ctx, theme, id)
}

// RegisterThemeArea creates the empty area id of theme folder unless its
// record exists. Existing placements are never reset.
func (r *Registry) RegisterThemeArea(ctx context.Context, folder, areaID string) (bool, error) {
	folder = strings.ToLower(folder)
	id := strings.ToLower(strings.TrimSpace(areaID))
	if err := utils.ValidateAreaID(id); err != nil {
		return false, errs.Validation("area.register", "%v", err)
	}
	if IsSystemArea(id) {
		return false, errs.Validation("area.register", "%q is a system area", id)
	}
	return r.create(ctx, location{id: id, kind: KindTheme, key: ThemeKey(folder, id)})
}

// ThemeAreaExists reports whether theme folder has a record for area id
func (r *Registry) ThemeAreaExists(ctx context.Context, folder, areaID string) (bool, error) {
	_, err := r.backend.Get(ctx, ThemeKey(folder, areaID), store.MetaTypeWidgetAreaByTheme)
	if errs.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (r *Registry) create(ctx context.Context, loc location) (bool, error) {
	value, err := store.Encode(record{ID: loc.id, WidgetIDs: []int64{}})
	if err != nil {
		return false, err
	}
	_, err = r.backend.Create(ctx, &store.Meta{Key: loc.key, Value: value, Type: loc.metaType()})
	if errs.IsConflict(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to register area %s: %w", loc.key, err)
	}
	r.logger.Info("Area registered", zap.String("area", loc.id), zap.String("key", loc.key), zap.String("kind", string(loc.kind)))
	return true, nil
}

func (r *Registry) load(ctx context.Context, loc location) (record, error) {
	meta, err := r.backend.Get(ctx, loc.key, loc.metaType())
	if err != nil {
		if errs.IsNotFound(err) {
			return record{}, errs.NotFound("area.get", "area %q not found", loc.id)
		}
		return record{}, err
	}
	var rec record
	if err := store.Decode(meta.Value, &rec); err != nil {
		return record{}, fmt.Errorf("failed to decode area %s: %w", loc.key, err)
	}
	return rec, nil
}

// GetArea returns an area with its widgets in order. Ids whose widget no
// longer exists are left out of the result but kept in storage.
func (r *Registry) GetArea(ctx context.Context, areaID string) (area *Area, err error) {
	timer := monitoring.NewTimer(r.metrics, "area", "get")
	defer func() { timer.Stop(err) }()

	loc, err := r.locate(ctx, areaID)
	if err != nil {
		return nil, err
	}
	manifests, err := r.widgetManifests.List(ctx)
	if err != nil {
		return nil, err
	}
	return r.materialize(ctx, loc, "", manifests)
}

func (r *Registry) materialize(ctx context.Context, loc location, name string, manifests []manifest.WidgetManifest) (*Area, error) {
	rec, err := r.load(ctx, loc)
	if err != nil {
		return nil, err
	}

	out := &Area{
		ID:        loc.id,
		Name:      name,
		Kind:      loc.kind,
		WidgetIDs: rec.WidgetIDs,
		Widgets:   make([]widget.Instance, 0, len(rec.WidgetIDs)),
	}
	if out.WidgetIDs == nil {
		out.WidgetIDs = []int64{}
	}
	for _, id := range rec.WidgetIDs {
		w, err := r.widgets.Get(ctx, id)
		if errs.IsNotFound(err) {
			r.logger.Debug("Skipping dangling widget", zap.String("area", loc.id), zap.Int64("widget", id))
			if r.metrics != nil {
				r.metrics.IncDanglingWidget()
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		out.Widgets = append(out.Widgets, widget.NewInstance(w, manifests))
	}
	return out, nil
}

// GetCurrentThemeAreas returns the system areas followed by the areas the
// current theme declares.
func (r *Registry) GetCurrentThemeAreas(ctx context.Context) (areas []*Area, err error) {
	timer := monitoring.NewTimer(r.metrics, "area", "get_current_theme_areas")
	defer func() { timer.Stop(err) }()

	theme, err := r.currentTheme(ctx)
	if err != nil {
		return nil, err
	}
	themes, err := r.themeManifests.List(ctx)
	if err != nil {
		return nil, err
	}
	m, ok := manifest.FindTheme(themes, theme)
	if !ok {
		return nil, errs.NotFound("area.current", "theme %q is not installed", theme)
	}
	widgets, err := r.widgetManifests.List(ctx)
	if err != nil {
		return nil, err
	}

	areas = make([]*Area, 0, len(SystemAreas)+len(m.WidgetAreas))
	for _, info := range SystemAreas {
		a, err := r.materialize(ctx, location{id: info.ID, kind: KindSystem, key: info.ID}, info.Name, widgets)
		if err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	for _, info := range m.WidgetAreas {
		if info.ID == "" || IsSystemArea(info.ID) {
			continue
		}
		loc := location{id: info.ID, kind: KindTheme, key: ThemeKey(theme, info.ID)}
		a, err := r.materialize(ctx, loc, info.Name, widgets)
		if errs.IsNotFound(err) {
			// Declared after the last activation; reactivating provisions it
			r.logger.Warn("Skipping unprovisioned theme area", zap.String("theme", theme), zap.String("area", info.ID))
			continue
		}
		if err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	return areas, nil
}

// AddWidgetToArea places widget id at index, clamped to the area's bounds.
// A widget already in the area is moved rather than duplicated.
func (r *Registry) AddWidgetToArea(ctx context.Context, widgetID int64, areaID string, index int) (inst widget.Instance, err error) {
	timer := monitoring.NewTimer(r.metrics, "area", "add")
	defer func() { timer.Stop(err) }()

	loc, err := r.locate(ctx, areaID)
	if err != nil {
		return widget.Instance{}, err
	}
	w, err := r.widgets.Get(ctx, widgetID)
	if err != nil {
		return widget.Instance{}, err
	}

	var pos int
	err = r.mutate(ctx, loc, func(rec *record) error {
		rec.WidgetIDs, pos = insert(rec.WidgetIDs, widgetID, index)
		return nil
	})
	if err != nil {
		return widget.Instance{}, err
	}
	r.recordMutation("add")
	r.logger.Debug("Widget added to area",
		zap.String("area", loc.id), zap.Int64("widget", widgetID), zap.Int("index", pos))

	manifests, err := r.widgetManifests.List(ctx)
	if err != nil {
		return widget.Instance{}, err
	}
	return widget.NewInstance(w, manifests), nil
}

// RemoveWidgetFromArea drops widget id from the area. The widget itself is kept.
func (r *Registry) RemoveWidgetFromArea(ctx context.Context, widgetID int64, areaID string) (err error) {
	timer := monitoring.NewTimer(r.metrics, "area", "remove")
	defer func() { timer.Stop(err) }()

	loc, err := r.locate(ctx, areaID)
	if err != nil {
		return err
	}
	removed := false
	err = r.mutate(ctx, loc, func(rec *record) error {
		removed = contains(rec.WidgetIDs, widgetID)
		rec.WidgetIDs = remove(rec.WidgetIDs, widgetID)
		return nil
	})
	if err != nil {
		return err
	}
	if removed {
		r.recordMutation("remove")
		r.logger.Debug("Widget removed from area", zap.String("area", loc.id), zap.Int64("widget", widgetID))
	}
	return nil
}

// OrderWidgetInArea moves widget id to index within the area
func (r *Registry) OrderWidgetInArea(ctx context.Context, widgetID int64, areaID string, index int) (err error) {
	timer := monitoring.NewTimer(r.metrics, "area", "order")
	defer func() { timer.Stop(err) }()

	loc, err := r.locate(ctx, areaID)
	if err != nil {
		return err
	}
	err = r.mutate(ctx, loc, func(rec *record) error {
		if !contains(rec.WidgetIDs, widgetID) {
			return errs.NotFound("area.order", "widget %d is not in area %q", widgetID, loc.id)
		}
		rec.WidgetIDs, _ = insert(rec.WidgetIDs, widgetID, index)
		return nil
	})
	if err != nil {
		return err
	}
	r.recordMutation("order")
	return nil
}

// mutate applies fn to the area's record as one atomic read-modify-write.
// fn may run more than once.
func (r *Registry) mutate(ctx context.Context, loc location, fn func(*record) error) error {
	found := false
	_, err := r.backend.Mutate(ctx, loc.key, loc.metaType(), func(value string) (string, error) {
		found = true
		var rec record
		if err := store.Decode(value, &rec); err != nil {
			return "", fmt.Errorf("failed to decode area %s: %w", loc.key, err)
		}
		if err := fn(&rec); err != nil {
			return "", err
		}
		if rec.ID == "" {
			rec.ID = loc.id
		}
		return store.Encode(rec)
	})
	if errs.IsNotFound(err) && !found {
		return errs.NotFound("area.mutate", "area %q not found", loc.id)
	}
	return err
}

func (r *Registry) recordMutation(op string) {
	if r.metrics != nil {
		r.metrics.IncAreaMutation(op)
	}
}
