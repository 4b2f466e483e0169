// Package theme registers themes and provisions the areas they declare.
package theme

import (
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/Canopy/backend/internal/domain/extension"
	"github.com/GriffinCanCode/Canopy/backend/internal/domain/manifest"
	"github.com/GriffinCanCode/Canopy/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/paths"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
)

// Theme is a registered theme.
type Theme struct {
	ID     int64  `json:"id"`
	Folder string `json:"folder"`
}

// ExtensionFolder returns the theme folder
func (t *Theme) ExtensionFolder() string { return t.Folder }

// Registry is the extension registry for themes
type Registry = extension.Registry[manifest.ThemeManifest, *Theme]

// NewRegistry creates the theme registry. Theme markers are keyed by folder,
// so every folder decodes the same way.
func NewRegistry(
	manifests *manifest.Store[manifest.ThemeManifest],
	backend store.Backend,
	installer *extension.Installer,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Registry {
	kind := extension.Kind[*Theme]{
		Name:     "theme",
		Dir:      paths.ThemesDir,
		MetaType: store.MetaTypeTheme,
		Tag:      func(m *store.Meta) (string, error) { return m.Key, nil },
		Decoders: extension.NewDecoders[*Theme]().Fallback(decode),
	}
	return extension.NewRegistry(kind, manifests, backend, installer, metrics, logger)
}

func decode(m *store.Meta) (*Theme, error) {
	return &Theme{ID: m.ID, Folder: strings.ToLower(m.Key)}, nil
}
