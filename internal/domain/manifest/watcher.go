package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Invalidator drops a cached listing
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Watcher invalidates manifest caches when files under the extension roots
// change. Bursts of events within the debounce delay trigger one invalidation.
type Watcher struct {
	fsw     *fsnotify.Watcher
	delay   time.Duration
	targets map[string]Invalidator // root -> listing
	logger  *zap.Logger

	mu    sync.Mutex
	timer *time.Timer
	dirty map[string]bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher creates a watcher with the given debounce delay
func NewWatcher(delay time.Duration, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return &Watcher{
		fsw:     fsw,
		delay:   delay,
		targets: make(map[string]Invalidator),
		logger:  logger,
		dirty:   make(map[string]bool),
		done:    make(chan struct{}),
	}, nil
}

// Watch registers root and its immediate subfolders. Changes invalidate target.
func (w *Watcher) Watch(root string, target Invalidator) error {
	root = filepath.Clean(root)
	if err := w.fsw.Add(root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", root, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := w.fsw.Add(filepath.Join(root, e.Name())); err != nil {
				w.logger.Warn("Failed to watch extension folder", zap.String("folder", e.Name()), zap.Error(err))
			}
		}
	}
	w.mu.Lock()
	w.targets[root] = target
	w.mu.Unlock()
	return nil
}

// Start processes events until ctx is cancelled or Close is called
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.loop(ctx)
}

// Close stops the watcher and waits for the event loop to exit
func (w *Watcher) Close() error {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	err := w.fsw.Close()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Extension watcher error", zap.Error(err))
		}
	}
}

// rootOf maps an event path to the watched root it belongs to
func (w *Watcher) rootOf(path string) (string, bool) {
	dir := filepath.Dir(filepath.Clean(path))
	for _, candidate := range []string{dir, filepath.Dir(dir)} {
		if _, ok := w.targets[candidate]; ok {
			return candidate, true
		}
	}
	return "", false
}

func (w *Watcher) handle(event fsnotify.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	root, ok := w.rootOf(event.Name)
	if !ok {
		return
	}

	// New extension folders need their own watch to see manifest edits
	if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == root {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(event.Name); err != nil {
				w.logger.Warn("Failed to watch new extension folder", zap.String("path", event.Name), zap.Error(err))
			}
		}
	}

	w.dirty[root] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	roots := w.dirty
	w.dirty = make(map[string]bool)
	targets := make([]Invalidator, 0, len(roots))
	for root := range roots {
		targets = append(targets, w.targets[root])
	}
	w.mu.Unlock()

	for _, t := range targets {
		if err := t.Invalidate(context.Background()); err != nil {
			w.logger.Warn("Failed to invalidate manifests", zap.Error(err))
			continue
		}
		w.logger.Debug("Manifest cache invalidated after file change")
	}
}
