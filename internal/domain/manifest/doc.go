// Package manifest discovers installed themes and widgets.
//
// Each extension lives in its own folder under a kind root and describes
// itself with a theme.* or widget.* file in JSON, YAML or TOML. Listings are
// cached per kind and can be invalidated explicitly or by a Watcher.
package manifest
