// Package tasks orchestrates playlist mixes across music catalogs with real-time progress reporting.
//
// # Core Operations
//
//  1. [PlaylistEngine.Mix] : Build a mix from source playlists
//     - Parses nothing itself; callers pass [SourceRef] values from [ParseSourceRefs]
//     - Resolves Spotify sources through the [PlaylistCache], falling back to the catalog
//     - Fetches sources concurrently, bounded by a worker limit and a request rate
//     - Runs the mixer and optionally publishes the mix as a new Spotify playlist
//
//  2. [PlaylistEngine.Publish] : Save an existing mix result to Spotify
//
//  3. [PlaylistEngine.Snapshot] : Export Spotify playlists to JSON files for offline mixing
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Source Cache
//
// Cache failures are logged and never abort a mix. Local file sources bypass the cache.
package tasks
