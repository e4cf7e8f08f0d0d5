// Package services defines the [Service] interface for playlist catalogs and implements it for Spotify and local JSON files.
//
// # Service Interface
//
// Every catalog implements a common abstraction, so source playlists can be read from and mixes published to either one.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
// A callback registered with [SpotifyService.SetTokenRefreshCallback] receives every new token so it can be saved.
//
// Listing endpoints are followed page by page through their next links.
// Requests answered with 429 or a 5xx status are retried with exponential backoff, honoring Retry-After.
//
// # File Implementation
//
// [FileService] reads and writes [models.PlaylistExport] JSON documents in a directory,
// the same format written by `mixtape spotify export`.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : OAuth token expired, reauthorization needed
//   - [shared.ErrRateLimited] : retries exhausted on 429 responses
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrPlaylistNotFound] : Playlist ID not found
package services
