// Package store provides SQLite-backed storage for the track cache,
// playlist aliases and the run log.
//
// # Tables
//
//   - tracks: track metadata by id, with a content digest per row
//   - playlist_aliases: case-folded playlist name to playlist id
//   - runs: one row per script run
//   - events: trace events of a run, keyed by (run_id, seq)
//
// # Ordering
//
// Every query carries an explicit ORDER BY with COLLATE BINARY, and events
// are ordered by the run's logical clock (seq), never by wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Event ids and track digests are computed by internal/ir using canonical
// JSON and SHA-256 with domain separation.
package store
