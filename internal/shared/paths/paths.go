package paths

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Extension kind directories under the content root
const (
	ThemesDir  = "Themes"
	WidgetsDir = "Widgets"
)

// Asset directories
const (
	// SourceAssetsDir holds an extension's static files inside its package folder
	SourceAssetsDir = "wwwroot"

	// ServedThemesDir and ServedWidgetsDir are the runtime-served locations under the web root
	ServedThemesDir  = "themes"
	ServedWidgetsDir = "widgets"
)

// Layout resolves extension directories for one deployment.
type Layout struct {
	ContentRoot string
	WebRoot     string
}

// NewLayout creates a layout rooted at the given content and web roots.
func NewLayout(contentRoot, webRoot string) Layout {
	return Layout{ContentRoot: contentRoot, WebRoot: webRoot}
}

// Themes returns the directory containing one subfolder per theme
func (l Layout) Themes() string {
	return filepath.Join(l.ContentRoot, ThemesDir)
}

// Widgets returns the directory containing one subfolder per widget
func (l Layout) Widgets() string {
	return filepath.Join(l.ContentRoot, WidgetsDir)
}

// Extension returns paths for one extension folder of a kind directory
func (l Layout) Extension(kindDir, folder string) Extension {
	served := ServedWidgetsDir
	if kindDir == ThemesDir {
		served = ServedThemesDir
	}
	return Extension{
		Folder:    folder,
		Root:      filepath.Join(l.ContentRoot, kindDir, folder),
		ServedDir: filepath.Join(l.WebRoot, served, strings.ToLower(folder)),
	}
}

// Extension holds the resolved paths of one installed extension.
type Extension struct {
	Folder string
	// Root is the extension package folder
	Root string
	// ServedDir is where installed assets live
	ServedDir string
}

// SourceAssets returns the extension's static asset directory
func (e Extension) SourceAssets() string {
	return filepath.Join(e.Root, SourceAssetsDir)
}

// ManifestCandidates returns the manifest files to look for, in priority order
func (e Extension) ManifestCandidates(base string) []string {
	exts := []string{".json", ".yaml", ".yml", ".toml"}
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		out = append(out, filepath.Join(e.Root, base+ext))
	}
	return out
}

// StandardDirectories returns all directories that should exist for the layout
func (l Layout) StandardDirectories() []string {
	return []string{
		l.Themes(),
		l.Widgets(),
		filepath.Join(l.WebRoot, ServedThemesDir),
		filepath.Join(l.WebRoot, ServedWidgetsDir),
	}
}

// Within reports whether path is inside root after cleaning
func Within(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ValidateRelative checks that rel can be joined under a root without escaping it
func ValidateRelative(rel string) error {
	if rel == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if filepath.IsAbs(rel) {
		return fmt.Errorf("path cannot be absolute")
	}
	if filepath.Clean(rel) != rel {
		return fmt.Errorf("path contains invalid path components")
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes its root")
	}
	return nil
}
