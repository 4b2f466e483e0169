package manifest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/Canopy/backend/internal/infrastructure/cache"
	"github.com/GriffinCanCode/Canopy/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/errs"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/utils"
)

const parseConcurrency = 8

// Layout describes one extension kind's manifests.
type Layout[M any] struct {
	Kind     string // "theme" or "widget"
	Root     string // directory holding one subfolder per extension
	FileBase string // manifest file name without extension
	CacheKey string
	TTL      time.Duration
	// Finalize attaches the directory name and normalizes a parsed manifest
	Finalize func(m *M, dir string) error
}

type options struct {
	logger  *zap.Logger
	metrics *monitoring.Metrics
	policy  utils.FolderPolicy
}

// Option configures a Store
type Option func(*options)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics reports listing sizes
func WithMetrics(m *monitoring.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithPolicy replaces the default folder-name policy
func WithPolicy(p utils.FolderPolicy) Option {
	return func(o *options) { o.policy = p }
}

// Store lists the manifests of one kind through a TTL cache.
type Store[M any] struct {
	layout Layout[M]
	cache  *cache.Manager
	options
}

// NewStore creates a manifest store for layout
func NewStore[M any](layout Layout[M], c *cache.Manager, opts ...Option) *Store[M] {
	o := options{logger: zap.NewNop(), policy: utils.DefaultFolderPolicy()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With(zap.String("kind", layout.Kind))
	return &Store[M]{layout: layout, cache: c, options: o}
}

// NewThemeStore lists themes under root with the fixed theme TTL. Theme
// folders follow utils.ThemeFolderPolicy unless WithPolicy overrides it.
func NewThemeStore(root string, c *cache.Manager, opts ...Option) *Store[ThemeManifest] {
	opts = append([]Option{WithPolicy(utils.ThemeFolderPolicy())}, opts...)
	return NewStore(Layout[ThemeManifest]{
		Kind:     "theme",
		Root:     root,
		FileBase: ThemeFileBase,
		CacheKey: ThemeCacheKey,
		TTL:      ThemeCacheTTL,
		Finalize: FinalizeTheme,
	}, c, opts...)
}

// NewWidgetStore lists widgets under root
func NewWidgetStore(root string, c *cache.Manager, ttl time.Duration, opts ...Option) *Store[WidgetManifest] {
	return NewStore(Layout[WidgetManifest]{
		Kind:     "widget",
		Root:     root,
		FileBase: WidgetFileBase,
		CacheKey: WidgetCacheKey,
		TTL:      ttl,
		Finalize: FinalizeWidget,
	}, c, opts...)
}

// Kind returns the extension kind name
func (s *Store[M]) Kind() string { return s.layout.Kind }

// Root returns the directory scanned for extensions
func (s *Store[M]) Root() string { return s.layout.Root }

// Policy returns the folder-name policy
func (s *Store[M]) Policy() utils.FolderPolicy { return s.policy }

// List returns the installed manifests, from cache when unexpired
func (s *Store[M]) List(ctx context.Context) ([]M, error) {
	return cache.GetOrCreate(ctx, s.cache, s.layout.CacheKey, s.layout.TTL, s.scan)
}

// Invalidate drops the cached listing
func (s *Store[M]) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, s.layout.CacheKey)
}

type result[M any] struct {
	manifest M
	ok       bool
}

// scan reads every valid extension folder. Folders that fail the policy,
// lack a manifest or hold a malformed one are skipped.
func (s *Store[M]) scan(ctx context.Context) ([]M, error) {
	entries, err := os.ReadDir(s.layout.Root)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("Extension root does not exist", zap.String("root", s.layout.Root))
		return []M{}, nil
	}
	if err != nil {
		return nil, errs.IO("manifest.list", err)
	}

	dirs := make([]string, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if err := s.policy.Validate(name); err != nil {
			s.logger.Debug("Skipping extension folder", zap.String("folder", name), zap.String("reason", err.Error()))
			continue
		}
		// Folders are unique case-insensitively; first in lexical order wins
		lower := strings.ToLower(name)
		if seen[lower] {
			s.logger.Warn("Skipping duplicate extension folder", zap.String("folder", name))
			continue
		}
		seen[lower] = true
		dirs = append(dirs, name)
	}
	sort.Strings(dirs)

	results := make([]result[M], len(dirs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parseConcurrency)
	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, ok := s.parse(dir)
			results[i] = result[M]{manifest: m, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]M, 0, len(results))
	for _, r := range results {
		if r.ok {
			out = append(out, r.manifest)
		}
	}

	if s.metrics != nil {
		s.metrics.SetManifestsInstalled(s.layout.Kind, len(out))
	}
	s.logger.Info("Scanned extension manifests",
		zap.String("root", s.layout.Root),
		zap.Int("folders", len(dirs)),
		zap.Int("manifests", len(out)),
	)
	return out, nil
}

func (s *Store[M]) parse(dir string) (M, bool) {
	var m M
	path, err := ReadFile(filepath.Join(s.layout.Root, dir), s.layout.FileBase, &m)
	if errors.Is(err, ErrNoManifest) {
		s.logger.Debug("Extension folder has no manifest", zap.String("folder", dir))
		return m, false
	}
	if err == nil {
		err = s.layout.Finalize(&m, dir)
	}
	if err != nil {
		s.logger.Warn("Skipping malformed manifest",
			zap.String("folder", dir),
			zap.String("file", path),
			zap.Error(err),
		)
		return m, false
	}
	return m, true
}
