package extension

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Canopy/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/errs"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/paths"
)

// Files smaller than this are not worth a gzip sibling
const minCompressSize = 512

// Installer copies extension assets into the served web root.
type Installer struct {
	layout  paths.Layout
	include string
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewInstaller creates an installer. include is a doublestar pattern matched
// against slash-separated paths relative to the asset directory.
func NewInstaller(layout paths.Layout, include string, metrics *monitoring.Metrics, logger *zap.Logger) (*Installer, error) {
	if include == "" {
		include = "**/*"
	}
	if !doublestar.ValidatePattern(include) {
		return nil, fmt.Errorf("invalid asset pattern %q", include)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Installer{layout: layout, include: include, metrics: metrics, logger: logger}, nil
}

// Install copies the assets of folder under kindDir. An existing destination
// is left untouched. Returns the number of files copied.
func (in *Installer) Install(ctx context.Context, kindDir, folder string) (int, error) {
	ext, err := in.resolve(kindDir, folder)
	if err != nil {
		return 0, err
	}
	if _, err := os.Stat(ext.ServedDir); err == nil {
		in.logger.Debug("Extension already installed", zap.String("folder", folder))
		return 0, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, errs.IO("extension.install", err)
	}

	src := ext.SourceAssets()
	files, err := in.collect(ctx, src)
	if err != nil {
		return 0, err
	}

	// A source that ships its own .gz keeps it; no sibling is generated
	shipped := make(map[string]bool, len(files))
	for _, rel := range files {
		shipped[rel] = true
	}

	// Stage into a sibling so a failed copy never leaves a partial install behind
	staging := ext.ServedDir + ".tmp-" + uuid.NewString()
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return 0, errs.IO("extension.install", err)
	}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			os.RemoveAll(staging)
			return 0, err
		}
		dst := filepath.Join(staging, rel)
		if !paths.Within(staging, dst) {
			os.RemoveAll(staging)
			return 0, errs.Validation("extension.install", "asset %q escapes %s", rel, folder)
		}
		if err := copyAsset(filepath.Join(src, rel), dst, !shipped[rel+".gz"]); err != nil {
			os.RemoveAll(staging)
			return 0, errs.IO("extension.install", err)
		}
	}
	if err := os.Rename(staging, ext.ServedDir); err != nil {
		os.RemoveAll(staging)
		// Lost a race with a concurrent install of the same folder
		if _, statErr := os.Stat(ext.ServedDir); statErr == nil {
			return 0, nil
		}
		return 0, errs.IO("extension.install", err)
	}

	if in.metrics != nil {
		in.metrics.AddAssetsInstalled(strings.ToLower(kindDir), len(files))
	}
	in.logger.Info("Extension installed",
		zap.String("folder", folder),
		zap.String("dest", ext.ServedDir),
		zap.Int("files", len(files)),
	)
	return len(files), nil
}

// resolve finds the folder on disk ignoring case, since instances store the
// lowercased folder name.
func (in *Installer) resolve(kindDir, folder string) (paths.Extension, error) {
	ext := in.layout.Extension(kindDir, folder)
	kindRoot := in.layout.Extension(kindDir, "").Root
	if ext.Root == kindRoot || !paths.Within(kindRoot, ext.Root) {
		return ext, errs.Validation("extension.install", "folder %q escapes %s", folder, kindDir)
	}
	if _, err := os.Stat(ext.Root); err == nil {
		return ext, nil
	}
	entries, err := os.ReadDir(kindRoot)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return ext, errs.IO("extension.install", err)
	}
	for _, e := range entries {
		if e.IsDir() && strings.EqualFold(e.Name(), folder) {
			return in.layout.Extension(kindDir, e.Name()), nil
		}
	}
	return ext, errs.NotFound("extension.install", "extension folder %q not found", folder)
}

// collect lists regular files under src that match the include pattern
func (in *Installer) collect(ctx context.Context, src string) ([]string, error) {
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	var (
		mu    sync.Mutex
		files []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, src, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if err := paths.ValidateRelative(rel); err != nil {
			return fmt.Errorf("asset %s: %w", p, err)
		}
		ok, err := doublestar.Match(in.include, filepath.ToSlash(rel))
		if err != nil || !ok {
			return err
		}
		mu.Lock()
		files = append(files, rel)
		mu.Unlock()
		return nil
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if err != nil {
		return nil, errs.IO("extension.install", err)
	}
	sort.Strings(files)
	return files, nil
}

func copyAsset(src, dst string, compress bool) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	if !compress || n < minCompressSize {
		return nil
	}
	mtype, err := mimetype.DetectFile(src)
	if err != nil || !compressible(mtype) {
		return nil
	}
	return gzipAsset(src, dst+".gz")
}

// compressible reports whether the type is text-based
func compressible(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "text/") {
			return true
		}
	}
	return false
}

func gzipAsset(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	gz, err := gzip.NewWriterLevel(out, gzip.BestCompression)
	if err != nil {
		return err
	}
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}
