// Package server wires the registry components into an HTTP server.
//
// Startup order:
//  1. Build the logger and the metrics registry
//  2. Open the meta store selected by STORE_DRIVER
//  3. Build the manifest cache, manifest stores and asset installer
//  4. Build the widget, theme and area registries and the activation coordinator
//  5. Mount middleware and routes
//
// Seed registers the system areas and activates the configured theme. When
// EXTENSIONS_WATCH is set, Run also watches the extension folders and drops
// the manifest caches after edits.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer srv.Close()
//	if err := srv.Seed(ctx); err != nil {
//	    return err
//	}
//	return srv.Run(ctx)
package server
