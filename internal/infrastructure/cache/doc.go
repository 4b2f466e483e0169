// Package cache provides the TTL cache used for manifest listings.
//
// Two drivers implement Cache: Memory for a single process and Redis for a
// fleet sharing one cache. Manager adds miss collapsing through singleflight
// and hit/miss reporting:
//
//	mgr := cache.NewManager(cache.NewMemory(), metrics, logger)
//	list, err := cache.GetOrCreate(ctx, mgr, "installed-theme-manifests", 10*time.Minute, load)
package cache
