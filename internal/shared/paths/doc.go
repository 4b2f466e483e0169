// Package paths provides the extension directory layout.
//
// Extensions are discovered under a content root and their static assets are
// installed under a web root:
//
// # Directory Structure
//
//	<content root>/
//	  ├── Themes/
//	  │   └── <folder>/   (theme.json|yaml|yml|toml, wwwroot/)
//	  └── Widgets/
//	      └── <folder>/   (widget.json|yaml|yml|toml, wwwroot/)
//	<web root>/
//	  ├── themes/<folder>/
//	  └── widgets/<folder>/
//
// # Usage
//
//	layout := paths.NewLayout("/srv/canopy", "/srv/canopy/public")
//	ext := layout.Extension(paths.ThemesDir, "Clarity")
//	ext.SourceAssets() // /srv/canopy/Themes/Clarity/wwwroot
//	ext.ServedDir      // /srv/canopy/public/themes/clarity
package paths
