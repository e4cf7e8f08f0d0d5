package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// PlaylistCacheAdapter implements tasks.PlaylistCache on top of the playlist, track and listing repositories.
//
// Each Store replaces the whole snapshot of a playlist in one transaction.
type PlaylistCacheAdapter struct {
	db  *sql.DB
	now func() time.Time
}

// NewPlaylistCacheAdapter creates a new PlaylistCacheAdapter with the given database connection
func NewPlaylistCacheAdapter(db *sql.DB) *PlaylistCacheAdapter {
	return &PlaylistCacheAdapter{db: db, now: time.Now}
}

// Load returns the cached export of a playlist.
//
// Returns [shared.ErrCacheMiss] when the playlist was never cached or its snapshot is older than maxAge.
// A non-positive maxAge accepts any snapshot.
func (a *PlaylistCacheAdapter) Load(service, playlistID string, maxAge time.Duration) (*models.PlaylistExport, error) {
	playlist, err := NewPlaylistRepository(a.db).GetByServiceID(service, playlistID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s playlist %s", shared.ErrCacheMiss, service, playlistID)
	}
	if err != nil {
		return nil, err
	}

	if playlist.Stale(a.now(), maxAge) {
		return nil, fmt.Errorf("%w: %s playlist %s fetched %s", shared.ErrCacheMiss, service, playlistID, playlist.FetchedAt().Format(time.RFC3339))
	}

	tracks, err := NewPlaylistTrackRepository(a.db).Tracks(playlist.ID())
	if err != nil {
		return nil, err
	}

	return &models.PlaylistExport{Playlist: playlist.Playlist(), Tracks: tracks}, nil
}

// Store caches export as the current snapshot of the playlist.
func (a *PlaylistCacheAdapter) Store(service string, export *models.PlaylistExport) error {
	if export == nil || export.Playlist.ID == "" {
		return fmt.Errorf("%w: playlist export has no id", shared.ErrInvalidInput)
	}

	tx, err := a.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	playlists := NewPlaylistRepository(tx)
	tracks := NewTrackRepository(tx)
	listing := NewPlaylistTrackRepository(tx)

	meta := export.Playlist
	meta.TrackCount = len(export.Tracks)

	playlist, err := playlists.GetByServiceID(service, meta.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		playlist = models.NewPersistedPlaylist(0, service, meta.ID, meta)
		playlist.SetFetchedAt(a.now())
		if err := playlists.Create(playlist); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		playlist.SetPlaylist(meta)
		playlist.SetFetchedAt(a.now())
		if err := playlists.Update(playlist); err != nil {
			return err
		}
	}

	ids := make([]string, 0, len(export.Tracks))
	for _, t := range export.Tracks {
		stored, err := tracks.Upsert(service, t)
		if err != nil {
			return fmt.Errorf("failed to cache track %s: %w", t.ID, err)
		}
		ids = append(ids, stored.ID())
	}

	if err := listing.Replace(playlist.ID(), ids); err != nil {
		return err
	}

	return tx.Commit()
}

// List returns every cached playlist of a service, or of all services when service is empty.
func (a *PlaylistCacheAdapter) List(service string) ([]*models.PersistedPlaylist, error) {
	return NewPlaylistRepository(a.db).List(map[string]any{"service": service})
}

// CachedTracks counts the track rows linked to the snapshot of playlist.
func (a *PlaylistCacheAdapter) CachedTracks(playlist *models.PersistedPlaylist) (int, error) {
	return NewPlaylistTrackRepository(a.db).Count(playlist.ID())
}

// Invalidate drops the cached snapshot of one playlist.
func (a *PlaylistCacheAdapter) Invalidate(service, playlistID string) error {
	repo := NewPlaylistRepository(a.db)
	playlist, err := repo.GetByServiceID(service, playlistID)
	if err != nil {
		return err
	}
	return repo.Delete(playlist.ID())
}

// Clear drops every cached playlist of a service (all when empty) along with tracks nothing references.
func (a *PlaylistCacheAdapter) Clear(service string) (int, error) {
	tx, err := a.db.BeginTx(context.Background(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	n, err := NewPlaylistRepository(tx).DeleteByService(service)
	if err != nil {
		return 0, err
	}
	if _, err := NewTrackRepository(tx).DeleteOrphans(); err != nil {
		return 0, err
	}

	return n, tx.Commit()
}
