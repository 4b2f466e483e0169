package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	api "github.com/GriffinCanCode/Canopy/backend/internal/api/http"
	"github.com/GriffinCanCode/Canopy/backend/internal/api/middleware"
	"github.com/GriffinCanCode/Canopy/backend/internal/domain/area"
	"github.com/GriffinCanCode/Canopy/backend/internal/domain/extension"
	"github.com/GriffinCanCode/Canopy/backend/internal/domain/manifest"
	"github.com/GriffinCanCode/Canopy/backend/internal/domain/theme"
	"github.com/GriffinCanCode/Canopy/backend/internal/domain/widget"
	"github.com/GriffinCanCode/Canopy/backend/internal/infrastructure/cache"
	"github.com/GriffinCanCode/Canopy/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/Canopy/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/Canopy/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/paths"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
)

const (
	watchDebounce   = 500 * time.Millisecond
	shutdownTimeout = 10 * time.Second
)

// Server wraps the HTTP server and dependencies
type Server struct {
	config  *config.Config
	logger  *logging.Logger
	metrics *monitoring.Metrics
	layout  paths.Layout

	backend    store.Backend
	cacheClose io.Closer

	WidgetManifests *manifest.Store[manifest.WidgetManifest]
	ThemeManifests  *manifest.Store[manifest.ThemeManifest]
	Widgets         *widget.Registry
	WidgetStore     *widget.Store
	Themes          *theme.Registry
	Areas           *area.Registry
	Coordinator     *theme.Coordinator
	seeder          *theme.Seeder

	router *gin.Engine
}

// New builds every component from cfg. The caller must Close the server.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Development = cfg.Logging.Development
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing Canopy server",
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Storage.Driver),
		zap.String("cache", cfg.Cache.Driver),
		zap.String("theme", cfg.Theme.Current),
	)

	// Metrics first, every component reports into them
	metrics := monitoring.NewMetrics()

	backend, err := OpenBackend(ctx, cfg.Storage, logger.Component("store"))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}

	cacheBackend, cacheClose, err := OpenCache(cfg)
	if err != nil {
		backend.Close()
		return nil, err
	}

	s := &Server{
		config:     cfg,
		logger:     logger,
		metrics:    metrics,
		layout:     paths.NewLayout(cfg.Extensions.ContentRoot, cfg.Extensions.WebRoot),
		backend:    backend,
		cacheClose: cacheClose,
	}
	if err := s.build(cacheBackend); err != nil {
		s.Close()
		return nil, err
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

func (s *Server) build(cacheBackend cache.Cache) error {
	cfg := s.config
	manager := cache.NewManager(cacheBackend, s.metrics, s.logger.Component("cache"))

	manifestLog := s.logger.Component("manifest")
	s.WidgetManifests = manifest.NewWidgetStore(s.layout.Widgets(), manager, cfg.Cache.WidgetTTL,
		manifest.WithLogger(manifestLog), manifest.WithMetrics(s.metrics))
	s.ThemeManifests = manifest.NewThemeStore(s.layout.Themes(), manager,
		manifest.WithLogger(manifestLog), manifest.WithMetrics(s.metrics))

	installer, err := extension.NewInstaller(s.layout, cfg.Extensions.AssetGlob, s.metrics, s.logger.Component("installer"))
	if err != nil {
		return err
	}

	current := area.StaticTheme(cfg.Theme.Current)
	types := widget.DefaultTypes()
	s.WidgetStore = widget.NewStore(s.backend, types, s.logger.Component("widget"))
	s.Widgets = widget.NewRegistry(s.WidgetManifests, s.backend, types, installer, s.metrics, s.logger.Component("widget"))
	s.Themes = theme.NewRegistry(s.ThemeManifests, s.backend, installer, s.metrics, s.logger.Component("theme"))
	s.Areas = area.NewRegistry(area.Config{
		Backend:         s.backend,
		Widgets:         s.WidgetStore,
		WidgetManifests: s.WidgetManifests,
		ThemeManifests:  s.ThemeManifests,
		Themes:          current,
		Metrics:         s.metrics,
		Logger:          s.logger.Component("area"),
	})
	s.Coordinator = theme.NewCoordinator(s.backend, s.Themes, s.Areas, s.metrics, s.logger.Component("theme"))
	s.seeder = theme.NewSeeder(s.Areas, s.Coordinator, current, s.logger.Component("seed"))

	s.router = s.newRouter()
	return nil
}

func (s *Server) newRouter() *gin.Engine {
	cfg := s.config
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(cfg.Server.CORSOrigins)))
	if cfg.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}
	if cfg.RateLimit.GlobalRequestsPerSecond > 0 {
		burst := cfg.RateLimit.GlobalBurst
		if burst <= 0 {
			burst = cfg.RateLimit.GlobalRequestsPerSecond
		}
		router.Use(middleware.GlobalRateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.GlobalRequestsPerSecond,
			Burst:             burst,
		}))
	}
	if cfg.Logging.Development {
		router.Use(middleware.RequestLogger(s.logger.Component("http")))
	}

	handlers := api.NewHandlers(api.Deps{
		Backend:     s.backend,
		Widgets:     s.Widgets,
		WidgetStore: s.WidgetStore,
		Themes:      s.Themes,
		Coordinator: s.Coordinator,
		Areas:       s.Areas,
		Metrics:     s.metrics,
		Logger:      s.logger.Component("api"),
	})
	api.RegisterRoutes(router, handlers)

	// Installed extension assets
	router.Static("/"+paths.ServedThemesDir, s.layout.Extension(paths.ThemesDir, "").ServedDir)
	router.Static("/"+paths.ServedWidgetsDir, s.layout.Extension(paths.WidgetsDir, "").ServedDir)
	return router
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler { return s.router }

// Logger returns the server logger
func (s *Server) Logger() *logging.Logger { return s.logger }

// Seed registers the system areas and activates the configured theme
func (s *Server) Seed(ctx context.Context) error {
	if err := s.seeder.Seed(ctx); err != nil {
		return err
	}
	missing, err := s.Widgets.MissingManifests(ctx)
	if err != nil {
		return err
	}
	for _, folder := range missing {
		s.logger.Warn("Widget type has no installed manifest", zap.String("folder", folder))
	}
	return nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	if s.config.Extensions.Watch {
		watcher, err := s.watch(ctx)
		if err != nil {
			return err
		}
		defer watcher.Close()
	}

	addr := s.config.Server.Host + ":" + s.config.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

// watch starts invalidating manifest caches on extension folder changes.
// Missing roots are skipped.
func (s *Server) watch(ctx context.Context) (*manifest.Watcher, error) {
	watcher, err := manifest.NewWatcher(watchDebounce, s.logger.Component("watcher"))
	if err != nil {
		return nil, err
	}
	targets := []struct {
		root   string
		target manifest.Invalidator
	}{
		{s.WidgetManifests.Root(), s.WidgetManifests},
		{s.ThemeManifests.Root(), s.ThemeManifests},
	}
	for _, t := range targets {
		if err := watcher.Watch(t.root, t.target); err != nil {
			s.logger.Warn("Not watching extension root", zap.String("root", t.root), zap.Error(err))
		}
	}
	watcher.Start(ctx)
	return watcher, nil
}

// Close releases the store and cache connections
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if s.cacheClose != nil {
		if err := s.cacheClose.Close(); err != nil {
			s.logger.Error("Failed to close cache", zap.Error(err))
			errs = append(errs, fmt.Errorf("failed to close cache: %w", err))
		}
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.logger.Error("Failed to close store", zap.Error(err))
			errs = append(errs, fmt.Errorf("failed to close store: %w", err))
		}
	}
	s.logger.Flush()
	return errors.Join(errs...)
}
