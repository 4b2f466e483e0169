package area

import (
	"context"
	"strings"

	"github.com/GriffinCanCode/Canopy/backend/internal/domain/widget"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
)

// Kind says who declares an area.
type Kind string

const (
	KindSystem Kind = "system"
	KindTheme  Kind = "theme"
)

// MetaType returns the record type areas of this kind are stored under
func (k Kind) MetaType() store.MetaType {
	if k == KindSystem {
		return store.MetaTypeWidgetAreaBySystem
	}
	return store.MetaTypeWidgetAreaByTheme
}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	return k == KindSystem || k == KindTheme
}

// System area ids
const (
	BlogSidebar1       = "blog-sidebar1"
	BlogSidebar2       = "blog-sidebar2"
	BlogBeforePost     = "blog-before-post"
	BlogAfterPost      = "blog-after-post"
	BlogBeforePostList = "blog-before-post-list"
	BlogAfterPostList  = "blog-after-post-list"
	PageSidebar1       = "page-sidebar1"
	PageSidebar2       = "page-sidebar2"
	PageBeforeContent  = "page-before-content"
	PageAfterContent   = "page-after-content"
)

// SystemAreas lists the system areas in display order.
var SystemAreas = []Info{
	{ID: BlogSidebar1, Name: "Blog Sidebar 1"},
	{ID: BlogSidebar2, Name: "Blog Sidebar 2"},
	{ID: BlogBeforePost, Name: "Blog Before Post"},
	{ID: BlogAfterPost, Name: "Blog After Post"},
	{ID: BlogBeforePostList, Name: "Blog Before Post List"},
	{ID: BlogAfterPostList, Name: "Blog After Post List"},
	{ID: PageSidebar1, Name: "Page Sidebar 1"},
	{ID: PageSidebar2, Name: "Page Sidebar 2"},
	{ID: PageBeforeContent, Name: "Page Before Content"},
	{ID: PageAfterContent, Name: "Page After Content"},
}

// Info names an area.
type Info struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IsSystemArea reports whether id is a system area id, ignoring case
func IsSystemArea(id string) bool {
	id = strings.ToLower(id)
	for _, a := range SystemAreas {
		if a.ID == id {
			return true
		}
	}
	return false
}

// ThemeKey is the record key of a theme's area
func ThemeKey(folder, areaID string) string {
	return strings.ToLower(folder + "-" + areaID)
}

// Area is an area with its widgets resolved, in display order.
type Area struct {
	ID        string            `json:"id"`
	Name      string            `json:"name,omitempty"`
	Kind      Kind              `json:"kind"`
	WidgetIDs []int64           `json:"widgetIds"`
	Widgets   []widget.Instance `json:"widgets"`
}

// record is the persisted value of an area
type record struct {
	ID        string  `json:"id"`
	WidgetIDs []int64 `json:"widgetIds"`
}

// ThemeSource supplies the current theme folder.
type ThemeSource interface {
	CurrentTheme(ctx context.Context) (string, error)
}

// StaticTheme is a fixed current theme
type StaticTheme string

// CurrentTheme returns the theme folder
func (s StaticTheme) CurrentTheme(context.Context) (string, error) {
	return strings.ToLower(string(s)), nil
}

// insert places id at index clamped to [0, len(ids)], dropping any earlier
// occurrence first. Returns the new slice and the position used.
func insert(ids []int64, id int64, index int) ([]int64, int) {
	out := remove(ids, id)
	if index < 0 {
		index = 0
	}
	if index > len(out) {
		index = len(out)
	}
	out = append(out, 0)
	copy(out[index+1:], out[index:])
	out[index] = id
	return out, index
}

// remove drops the first occurrence of id
func remove(ids []int64, id int64) []int64 {
	out := make([]int64, 0, len(ids)+1)
	removed := false
	for _, v := range ids {
		if v == id && !removed {
			removed = true
			continue
		}
		out = append(out, v)
	}
	return out
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
