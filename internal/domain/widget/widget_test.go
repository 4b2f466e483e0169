package widget

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/Canopy/backend/internal/domain/manifest"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/errs"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
	"github.com/GriffinCanCode/Canopy/backend/internal/store/memstore"
	"github.com/GriffinCanCode/Canopy/backend/internal/store/sqlitestore"
)

func newTestStore(t *testing.T) (*Store, store.Backend) {
	t.Helper()
	backend := memstore.New()
	return NewStore(backend, DefaultTypes(), nil), backend
}

func TestCreateWithDefaults(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	id, err := s.Create(ctx, "BlogTags")
	require.NoError(t, err)
	assert.Positive(t, id)

	w, err := s.Get(ctx, id)
	require.NoError(t, err)
	tags, ok := w.(*BlogTags)
	require.True(t, ok)
	assert.Equal(t, id, tags.ID)
	assert.Equal(t, BlogTagsFolder, tags.Folder)
	assert.Equal(t, "Tags", tags.Title)
	assert.Equal(t, 100, tags.MaxTagsDisplayed)
	assert.True(t, tags.ShowPostCount)

	meta, err := backend.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.MetaTypeWidget, meta.Type)
	assert.True(t, strings.HasPrefix(meta.Key, "blogtags-"))

	t.Run("unknown folder", func(t *testing.T) {
		_, err := s.Create(ctx, "weather")
		assert.True(t, errs.IsNotFound(err))
	})

	t.Run("invalid folder", func(t *testing.T) {
		_, err := s.Create(ctx, "../tags")
		assert.True(t, errs.IsValidation(err))
	})
}

func TestCreateFrom(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	seed := NewRecentBlogPosts()
	seed.Title = "<b>Latest</b> & greatest"
	seed.NumberOfPostsToShow = 5
	seed.ShowPostExcerpt = false

	id, err := s.CreateFrom(ctx, seed, "RecentBlogPosts")
	require.NoError(t, err)
	assert.Equal(t, id, seed.ID)

	w, err := s.Get(ctx, id)
	require.NoError(t, err)
	posts := w.(*RecentBlogPosts)
	assert.Equal(t, "Latest & greatest", posts.Title)
	assert.Equal(t, 5, posts.NumberOfPostsToShow)
	assert.False(t, posts.ShowPostExcerpt)

	t.Run("type mismatch", func(t *testing.T) {
		_, err := s.CreateFrom(ctx, NewBlogTags(), RecentBlogPostsFolder)
		assert.True(t, errs.IsValidation(err))
	})

	t.Run("out of range settings", func(t *testing.T) {
		bad := NewRecentBlogPosts()
		bad.NumberOfPostsToShow = MaxRecentPosts + 1
		_, err := s.CreateFrom(ctx, bad, RecentBlogPostsFolder)
		require.True(t, errs.IsValidation(err))
		assert.Contains(t, err.Error(), "NumberOfPostsToShow")
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	id, err := s.Create(ctx, BlogTagsFolder)
	require.NoError(t, err)

	update := NewBlogTags()
	update.MaxTagsDisplayed = 25
	update.ShowPostCount = false
	update.Folder = "somethingelse"
	require.NoError(t, s.Update(ctx, id, update))

	w, err := s.Get(ctx, id)
	require.NoError(t, err)
	tags := w.(*BlogTags)
	assert.Equal(t, 25, tags.MaxTagsDisplayed)
	assert.False(t, tags.ShowPostCount)
	assert.Equal(t, BlogTagsFolder, tags.Folder)

	t.Run("missing id", func(t *testing.T) {
		err := s.Update(ctx, 4242, NewBlogTags())
		assert.True(t, errs.IsNotFound(err))
	})

	t.Run("invalid settings leave record unchanged", func(t *testing.T) {
		bad := NewBlogTags()
		bad.MaxTagsDisplayed = 0
		assert.True(t, errs.IsValidation(s.Update(ctx, id, bad)))

		w, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 25, w.(*BlogTags).MaxTagsDisplayed)
	})

	t.Run("wrong type", func(t *testing.T) {
		assert.True(t, errs.IsValidation(s.Update(ctx, id, NewSocialIcons())))
	})
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	id, err := s.Create(ctx, SocialIconsFolder)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id))
	require.NoError(t, s.Delete(ctx, id))

	_, err = s.Get(ctx, id)
	assert.True(t, errs.IsNotFound(err))

	exists, err := s.Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, exists)

	t.Run("refuses non-widget records", func(t *testing.T) {
		m, err := backend.Create(ctx, &store.Meta{Key: "clarity", Type: store.MetaTypeTheme})
		require.NoError(t, err)
		assert.True(t, errs.IsNotFound(s.Delete(ctx, m.ID)))

		_, err = backend.GetByID(ctx, m.ID)
		assert.NoError(t, err)
	})
}

func TestSocialIcons(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	w := NewSocialIcons()
	w.Links = []SocialLink{
		{URL: "https://github.com/canopy"},
		{URL: "www.youtube.com/@canopy"},
		{URL: "https://example.com/blog", Icon: "globe"},
	}
	id, err := s.CreateFrom(ctx, w, SocialIconsFolder)
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []SocialLink{
		{URL: "https://github.com/canopy", Icon: "github"},
		{URL: "https://www.youtube.com/@canopy", Icon: "youtube"},
		{URL: "https://example.com/blog", Icon: "globe"},
	}, got.(*SocialIcons).Links)

	t.Run("rejects blank url", func(t *testing.T) {
		bad := NewSocialIcons()
		bad.Links = []SocialLink{{URL: ""}}
		_, err := s.CreateFrom(ctx, bad, SocialIconsFolder)
		assert.True(t, errs.IsValidation(err))
	})
}

func TestNewSocialLink(t *testing.T) {
	tests := []struct {
		raw  string
		url  string
		icon string
	}{
		{"https://twitter.com/canopy", "https://twitter.com/canopy", "twitter"},
		{"https://x.com/canopy", "https://x.com/canopy", "twitter"},
		{"https://uk.linkedin.com/in/canopy", "https://uk.linkedin.com/in/canopy", "linkedin"},
		{"github.com/canopy", "https://github.com/canopy", "github"},
		{"mailto:hi@example.com", "mailto:hi@example.com", "envelope"},
		{"https://example.com/feed", "https://example.com/feed", "rss"},
		{"https://example.com", "https://example.com", "link"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			link := NewSocialLink(tt.raw)
			assert.Equal(t, tt.url, link.URL)
			assert.Equal(t, tt.icon, link.Icon)
		})
	}
}

func TestTypesDecode(t *testing.T) {
	types := DefaultTypes()
	assert.Equal(t, []string{BlogTagsFolder, RecentBlogPostsFolder, SocialIconsFolder}, types.Folders())
	assert.Equal(t, types.Folders(), types.Decoders().Folders())

	_, err := types.Decode(&store.Meta{ID: 3, Value: `{"folder":"weather"}`})
	assert.True(t, errs.IsNotFound(err))

	_, err = types.Decode(&store.Meta{ID: 3, Value: `not json`})
	assert.True(t, errs.IsValidation(err))

	w, err := types.Decode(&store.Meta{ID: 3, Value: `{"folder":"BlogTags","maxTagsDisplayed":7}`})
	require.NoError(t, err)
	assert.Equal(t, int64(3), w.Core().ID)
	assert.Equal(t, 7, w.(*BlogTags).MaxTagsDisplayed)
}

func TestNewInstance(t *testing.T) {
	w := NewBlogTags()
	w.ID = 12
	manifests := []manifest.WidgetManifest{{Folder: "blogtags", Name: "Blog Tags"}}

	inst := NewInstance(w, manifests)
	assert.Equal(t, "Blog Tags", inst.Name)
	assert.Equal(t, "/widgets/blogtagsSettings?widgetId=12", inst.SettingsURL)
	assert.Equal(t, "Tags", inst.Title)

	assert.Empty(t, SettingsURL("blogtags", 0))
	assert.Empty(t, SettingsURL("", 5))
	assert.Empty(t, NewInstance(NewSocialIcons(), manifests).Name)
}

func TestStoreOnSQLite(t *testing.T) {
	ctx := context.Background()
	backend, err := sqlitestore.Open(filepath.Join(t.TempDir(), "widgets.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	s := NewStore(backend, DefaultTypes(), nil)
	id, err := s.Create(ctx, RecentBlogPostsFolder)
	require.NoError(t, err)

	update := NewRecentBlogPosts()
	update.NumberOfPostsToShow = 6
	require.NoError(t, s.Update(ctx, id, update))

	w, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 6, w.(*RecentBlogPosts).NumberOfPostsToShow)

	require.NoError(t, s.Delete(ctx, id))
	require.NoError(t, s.Delete(ctx, id))
}
