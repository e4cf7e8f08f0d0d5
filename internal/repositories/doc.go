// Package repositories implements SQLite persistence for the source playlist cache.
//
// Every repository accepts a [DBTX], so it works on a [database/sql.DB] or inside a transaction.
//
// Key Implementations:
//   - [PlaylistRepository] : Cached playlist snapshots with service-specific lookups
//   - [TrackRepository] : Track metadata keyed by service and service ID
//   - [PlaylistTrackRepository] : Ordered track listing of each cached playlist
//   - [PlaylistCacheAdapter] : Load and store whole playlist exports with a freshness limit
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
