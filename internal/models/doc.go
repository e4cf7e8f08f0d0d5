// Package models defines catalog entities and persistence interfaces for mixtape.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing catalog data
//   - [Playlist] : Basic playlist metadata from a music service
//   - [PlaylistExport] : Playlist with complete track listing
//   - [Track] : Song metadata including popularity and album release date
//
// 2. Persistent Entities: Database-backed models for the local source cache
//   - [PersistedPlaylist] : Cached playlist snapshot with fetch time
//   - [PersistedTrack] : Cached track metadata keyed by service and service ID
//
// Persistent entities implement the [Model] interface providing ID, timestamps and validation.
// The [Repository] interface defines standard CRUD operations for database access.
package models
