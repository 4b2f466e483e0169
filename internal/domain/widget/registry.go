package widget

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Canopy/backend/internal/domain/extension"
	"github.com/GriffinCanCode/Canopy/backend/internal/domain/manifest"
	"github.com/GriffinCanCode/Canopy/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/paths"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
)

// Registry is the extension registry for widgets
type Registry = extension.Registry[manifest.WidgetManifest, Widget]

// NewRegistry creates the widget registry
func NewRegistry(
	manifests *manifest.Store[manifest.WidgetManifest],
	backend store.Backend,
	types *Types,
	installer *extension.Installer,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Registry {
	kind := extension.Kind[Widget]{
		Name:     "widget",
		Dir:      paths.WidgetsDir,
		MetaType: store.MetaTypeWidget,
		Tag:      Tag,
		Decoders: types.Decoders(),
	}
	return extension.NewRegistry(kind, manifests, backend, installer, metrics, logger)
}
