// Package store persists meta records: widget instances, area id lists and
// theme registration markers.
//
// A record is addressed by its integer id and by its unique (key, type) pair.
// Backends live in sub-packages:
//
//	memstore    - in-process maps, for tests and development
//	sqlitestore - embedded SQLite (default)
//	redisstore  - shared Redis, WATCH/MULTI for atomic mutation
//	pgstore     - PostgreSQL, SELECT ... FOR UPDATE for atomic mutation
//
// All backends pass the conformance suite in storetest.
package store
