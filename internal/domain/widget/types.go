package widget

import (
	"reflect"
	"sort"
	"strings"

	"github.com/GriffinCanCode/Canopy/backend/internal/domain/extension"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/errs"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
)

// Factory returns a widget of one type with default settings
type Factory func() Widget

// Types maps widget folders to their concrete types.
type Types struct {
	factories map[string]Factory
}

// NewTypes creates an empty type table
func NewTypes() *Types {
	return &Types{factories: make(map[string]Factory)}
}

// DefaultTypes returns the built-in widget types
func DefaultTypes() *Types {
	return NewTypes().
		Register(BlogTagsFolder, func() Widget { return NewBlogTags() }).
		Register(RecentBlogPostsFolder, func() Widget { return NewRecentBlogPosts() }).
		Register(SocialIconsFolder, func() Widget { return NewSocialIcons() })
}

// Register adds a widget type under folder
func (t *Types) Register(folder string, f Factory) *Types {
	t.factories[strings.ToLower(folder)] = f
	return t
}

// Folders returns the registered folders in order
func (t *Types) Folders() []string {
	out := make([]string, 0, len(t.factories))
	for f := range t.factories {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// New returns a default widget for folder
func (t *Types) New(folder string) (Widget, error) {
	f, ok := t.factories[strings.ToLower(folder)]
	if !ok {
		return nil, errs.NotFound("widget.type", "no widget type for folder %q", folder)
	}
	w := f()
	w.Core().Folder = strings.ToLower(folder)
	return w, nil
}

// Matches reports whether w is the concrete type registered for folder
func (t *Types) Matches(folder string, w Widget) bool {
	f, ok := t.factories[strings.ToLower(folder)]
	return ok && reflect.TypeOf(f()) == reflect.TypeOf(w)
}

// Decode unpacks a widget record into its concrete type
func (t *Types) Decode(m *store.Meta) (Widget, error) {
	folder, err := Tag(m)
	if err != nil {
		return nil, err
	}
	w, err := t.New(folder)
	if err != nil {
		return nil, err
	}
	if err := store.Decode(m.Value, w); err != nil {
		return nil, errs.Validation("widget.decode", "widget %d: %v", m.ID, err)
	}
	core := w.Core()
	core.ID = m.ID
	core.Folder = strings.ToLower(folder)
	return w, nil
}

// Decoders builds the folder-keyed decoder table used by the registry
func (t *Types) Decoders() *extension.Decoders[Widget] {
	d := extension.NewDecoders[Widget]()
	for _, folder := range t.Folders() {
		d.Register(folder, t.Decode)
	}
	return d
}

// Tag reads the folder tag of a widget record
func Tag(m *store.Meta) (string, error) {
	var head struct {
		Folder string `json:"folder"`
	}
	if err := store.Decode(m.Value, &head); err != nil {
		return "", errs.Validation("widget.tag", "widget %d: %v", m.ID, err)
	}
	return head.Folder, nil
}
