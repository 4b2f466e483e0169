package widget

import (
	"net/url"
	"strings"
)

// SocialLink is one profile link with the icon shown for it.
type SocialLink struct {
	URL  string `json:"url" validate:"required,url"`
	Icon string `json:"icon" validate:"max=64"`
}

const defaultIcon = "link"

// Known hosts and their icons. Subdomains match their parent.
var hostIcons = map[string]string{
	"facebook.com":      "facebook",
	"github.com":        "github",
	"gitlab.com":        "gitlab",
	"instagram.com":     "instagram",
	"linkedin.com":      "linkedin",
	"mastodon.social":   "mastodon",
	"medium.com":        "medium",
	"pinterest.com":     "pinterest",
	"reddit.com":        "reddit",
	"stackoverflow.com": "stack-overflow",
	"twitter.com":       "twitter",
	"x.com":             "twitter",
	"youtube.com":       "youtube",
	"youtu.be":          "youtube",
}

// NewSocialLink builds a link whose icon is inferred from the url
func NewSocialLink(raw string) SocialLink {
	raw = strings.TrimSpace(raw)
	link := SocialLink{URL: raw, Icon: defaultIcon}
	if raw == "" {
		return link
	}

	u, err := url.Parse(raw)
	if err != nil {
		return link
	}
	switch strings.ToLower(u.Scheme) {
	case "mailto":
		link.Icon = "envelope"
		return link
	case "":
		// Bare hosts like "github.com/user"
		if u, err = url.Parse("https://" + raw); err != nil {
			return link
		}
		link.URL = u.String()
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for host != "" {
		if icon, ok := hostIcons[host]; ok {
			link.Icon = icon
			return link
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	if strings.HasSuffix(u.Path, ".xml") || strings.Contains(u.Path, "/feed") {
		link.Icon = "rss"
	}
	return link
}
