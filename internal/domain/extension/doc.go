// Package extension provides the registry shared by widgets and themes.
//
// A Registry lists the manifests of one kind, decodes persisted instances
// through a decoder table keyed by folder, and installs an extension's
// static assets into the served web root.
package extension
