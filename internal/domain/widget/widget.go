package widget

import (
	"strings"
)

// Folders of the built-in widget types
const (
	BlogTagsFolder        = "blogtags"
	RecentBlogPostsFolder = "recentblogposts"
	SocialIconsFolder     = "socialicons"
)

// Widget is a configured widget instance of some concrete type.
type Widget interface {
	ExtensionFolder() string
	Core() *Base
}

// Base holds the fields every widget type shares.
type Base struct {
	ID     int64  `json:"id"`
	Folder string `json:"folder"`
	Title  string `json:"title" validate:"max=256"`
}

// ExtensionFolder returns the folder tag
func (b *Base) ExtensionFolder() string { return b.Folder }

// Core returns the shared fields
func (b *Base) Core() *Base { return b }

// BlogTags lists the blog's tags.
type BlogTags struct {
	Base
	MaxTagsDisplayed int  `json:"maxTagsDisplayed" validate:"min=1,max=10000"`
	ShowPostCount    bool `json:"showPostCount"`
}

// NewBlogTags returns a tags widget with default settings
func NewBlogTags() *BlogTags {
	return &BlogTags{
		Base:             Base{Folder: BlogTagsFolder, Title: "Tags"},
		MaxTagsDisplayed: 100,
		ShowPostCount:    true,
	}
}

// MaxRecentPosts caps RecentBlogPosts.NumberOfPostsToShow
const MaxRecentPosts = 6

// RecentBlogPosts lists the latest posts.
type RecentBlogPosts struct {
	Base
	NumberOfPostsToShow int  `json:"numberOfPostsToShow" validate:"min=1,max=6"`
	ShowPostAuthor      bool `json:"showPostAuthor"`
	ShowPostDate        bool `json:"showPostDate"`
	ShowPostExcerpt     bool `json:"showPostExcerpt"`
}

// NewRecentBlogPosts returns a recent posts widget with default settings
func NewRecentBlogPosts() *RecentBlogPosts {
	return &RecentBlogPosts{
		Base:                Base{Folder: RecentBlogPostsFolder, Title: "Recent Posts"},
		NumberOfPostsToShow: 3,
		ShowPostAuthor:      true,
		ShowPostDate:        true,
		ShowPostExcerpt:     true,
	}
}

// SocialIcons links to the author's profiles.
type SocialIcons struct {
	Base
	Links []SocialLink `json:"links" validate:"max=50,dive"`
}

// NewSocialIcons returns a social icons widget with no links
func NewSocialIcons() *SocialIcons {
	return &SocialIcons{
		Base:  Base{Folder: SocialIconsFolder, Title: "Social Icons"},
		Links: []SocialLink{},
	}
}

// normalize fills in icons the caller left blank
func (s *SocialIcons) normalize() {
	for i := range s.Links {
		inferred := NewSocialLink(s.Links[i].URL)
		s.Links[i].URL = inferred.URL
		if strings.TrimSpace(s.Links[i].Icon) == "" {
			s.Links[i].Icon = inferred.Icon
		}
	}
}
