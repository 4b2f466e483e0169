package extension

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/Canopy/backend/internal/domain/manifest"
	"github.com/GriffinCanCode/Canopy/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/errs"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
)

// Instance is a persisted extension that knows which folder defined it.
type Instance interface {
	ExtensionFolder() string
}

// Manifest is a parsed manifest that knows its folder.
type Manifest interface {
	ExtensionFolder() string
}

// Kind binds a registry to one extension kind.
type Kind[E any] struct {
	Name     string         // "widget" or "theme"
	Dir      string         // kind directory under the content root
	MetaType store.MetaType // records holding instances of this kind
	// Tag extracts the folder tag from a record
	Tag      func(m *store.Meta) (string, error)
	Decoders *Decoders[E]
}

// Registry lists, loads and installs extensions of one kind.
type Registry[M Manifest, E Instance] struct {
	kind      Kind[E]
	manifests *manifest.Store[M]
	backend   store.Backend
	installer *Installer
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

// NewRegistry creates a registry. metrics and logger may be nil.
func NewRegistry[M Manifest, E Instance](
	kind Kind[E],
	manifests *manifest.Store[M],
	backend store.Backend,
	installer *Installer,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Registry[M, E] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry[M, E]{
		kind:      kind,
		manifests: manifests,
		backend:   backend,
		installer: installer,
		metrics:   metrics,
		logger:    logger.With(zap.String("kind", kind.Name)),
	}
}

// Kind returns the kind name
func (r *Registry[M, E]) Kind() string { return r.kind.Name }


// GetManifests returns the installed manifests of this kind
func (r *Registry[M, E]) GetManifests(ctx context.Context) (list []M, err error) {
	timer := monitoring.NewTimer(r.metrics, r.kind.Name, "get_manifests")
	defer func() { timer.Stop(err) }()

	list, err = r.manifests.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s manifests: %w", r.kind.Name, err)
	}
	return list, nil
}

// GetExtension loads the instance with id and decodes it by its folder tag
func (r *Registry[M, E]) GetExtension(ctx context.Context, id int64) (ext E, err error) {
	timer := monitoring.NewTimer(r.metrics, r.kind.Name, "get_extension")
	defer func() { timer.Stop(err) }()

	var zero E
	meta, err := r.backend.GetByID(ctx, id)
	if err != nil {
		return zero, err
	}
	if meta.Type != r.kind.MetaType {
		return zero, errs.NotFound("extension.get", "%s %d not found", r.kind.Name, id)
	}
	tag, err := r.kind.Tag(meta)
	if err != nil {
		return zero, err
	}
	return r.kind.Decoders.Decode(tag, meta)
}

// InstallExtension copies the assets of ext into the served directory
func (r *Registry[M, E]) InstallExtension(ctx context.Context, ext E) (err error) {
	timer := monitoring.NewTimer(r.metrics, r.kind.Name, "install")
	defer func() { timer.Stop(err) }()

	folder := ext.ExtensionFolder()
	if err := r.manifests.Policy().Validate(folder); err != nil {
		return errs.Validation("extension.install", "%v", err)
	}
	if !r.kind.Decoders.Has(folder) {
		return errs.NotFound("extension.install", "no %s type for folder %q", r.kind.Name, folder)
	}
	n, err := r.installer.Install(ctx, r.kind.Dir, folder)
	if err != nil {
		return err
	}
	if n > 0 {
		r.logger.Debug("Installed extension assets", zap.String("folder", folder), zap.Int("files", n))
	}
	return nil
}

// IsValidExtensionFolder reports whether folder passes the folder-name policy
func (r *Registry[M, E]) IsValidExtensionFolder(folder string) bool {
	return r.manifests.Policy().Allows(folder)
}

// MissingManifests lists the folders with a registered decoder but no
// installed manifest. Instances of those folders can be stored but never listed.
func (r *Registry[M, E]) MissingManifests(ctx context.Context) ([]string, error) {
	list, err := r.manifests.List(ctx)
	if err != nil {
		return nil, err
	}
	installed := make(map[string]bool, len(list))
	for _, m := range list {
		installed[m.ExtensionFolder()] = true
	}
	var missing []string
	for _, folder := range r.kind.Decoders.Folders() {
		if !installed[folder] {
			missing = append(missing, folder)
		}
	}
	return missing, nil
}

// InvalidateManifests drops the cached manifest listing
func (r *Registry[M, E]) InvalidateManifests(ctx context.Context) error {
	return r.manifests.Invalidate(ctx)
}
