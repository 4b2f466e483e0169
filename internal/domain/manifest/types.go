package manifest

import (
	"strings"
	"time"
)

// Manifest file base names and cache keys
const (
	ThemeFileBase  = "theme"
	WidgetFileBase = "widget"

	ThemeCacheKey  = "installed-theme-manifests"
	WidgetCacheKey = "installed-widget-manifests"

	// ThemeCacheTTL is the fixed lifetime of the theme listing
	ThemeCacheTTL = 10 * time.Minute
)

// AreaInfo is one widget area declared by a theme.
type AreaInfo struct {
	ID   string `json:"id" yaml:"id" toml:"id"`
	Name string `json:"name" yaml:"name" toml:"name"`
}

// ThemeManifest describes an installed theme.
type ThemeManifest struct {
	// Folder is the lowercased directory name; Directory is the name on disk
	Folder    string `json:"folder" yaml:"-" toml:"-"`
	Directory string `json:"directory" yaml:"-" toml:"-"`

	Name         string     `json:"name" yaml:"name" toml:"name"`
	Description  string     `json:"description" yaml:"description" toml:"description"`
	Version      string     `json:"version" yaml:"version" toml:"version"`
	Author       string     `json:"author" yaml:"author" toml:"author"`
	Homepage     string     `json:"homepage" yaml:"homepage" toml:"homepage"`
	Tags         []string   `json:"tags" yaml:"tags" toml:"tags"`
	ThumbnailURL string     `json:"thumbnailUrl" yaml:"thumbnailUrl" toml:"thumbnailUrl"`
	WidgetAreas  []AreaInfo `json:"widgetAreas" yaml:"widgetAreas" toml:"widgetAreas"`
}

// WidgetManifest describes an installed widget.
type WidgetManifest struct {
	Folder    string `json:"folder" yaml:"-" toml:"-"`
	Directory string `json:"directory" yaml:"-" toml:"-"`

	Name        string   `json:"name" yaml:"name" toml:"name"`
	Description string   `json:"description" yaml:"description" toml:"description"`
	Version     string   `json:"version" yaml:"version" toml:"version"`
	Author      string   `json:"author" yaml:"author" toml:"author"`
	Homepage    string   `json:"homepage" yaml:"homepage" toml:"homepage"`
	Tags        []string `json:"tags" yaml:"tags" toml:"tags"`
}

// ExtensionFolder returns the lowercased folder
func (m ThemeManifest) ExtensionFolder() string { return m.Folder }

// ExtensionFolder returns the lowercased folder
func (m WidgetManifest) ExtensionFolder() string { return m.Folder }

// FindTheme returns the manifest whose folder equals folder, ignoring case.
func FindTheme(manifests []ThemeManifest, folder string) (ThemeManifest, bool) {
	for _, m := range manifests {
		if strings.EqualFold(m.Folder, folder) {
			return m, true
		}
	}
	return ThemeManifest{}, false
}

// FindWidget returns the manifest whose folder equals folder, ignoring case.
func FindWidget(manifests []WidgetManifest, folder string) (WidgetManifest, bool) {
	for _, m := range manifests {
		if strings.EqualFold(m.Folder, folder) {
			return m, true
		}
	}
	return WidgetManifest{}, false
}

// DedupAreas lowercases area ids and keeps the first area of each id.
// Empty ids are kept so activation can reject them.
func DedupAreas(areas []AreaInfo) []AreaInfo {
	seen := make(map[string]bool, len(areas))
	out := make([]AreaInfo, 0, len(areas))
	for _, a := range areas {
		id := strings.ToLower(strings.TrimSpace(a.ID))
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, AreaInfo{ID: id, Name: a.Name})
	}
	return out
}
