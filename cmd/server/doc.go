// Command server runs the Canopy extension registry.
//
// Configuration comes from the environment (see internal/infrastructure/config).
// Flags override the matching variables.
//
// Usage:
//
//	server serve [--port 8000] [--store sqlite] [--theme clarity] [--watch]
//	server manifests [--kind widget|theme]
//	server activate <folder>
package main
