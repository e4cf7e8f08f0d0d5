package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/mixtape/internal/models"
)

// PlaylistTrackRepository manages the ordered track listing of cached playlists.
type PlaylistTrackRepository struct {
	db DBTX
}

// NewPlaylistTrackRepository creates a new PlaylistTrackRepository with the given database connection
func NewPlaylistTrackRepository(db DBTX) *PlaylistTrackRepository {
	return &PlaylistTrackRepository{db: db}
}

// Replace sets the listing of a playlist to trackIDs, in order.
func (r *PlaylistTrackRepository) Replace(playlistID string, trackIDs []string) error {
	ctx := context.Background()
	if _, err := r.db.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = ?`, playlistID); err != nil {
		return fmt.Errorf("failed to clear playlist tracks: %w", err)
	}

	for pos, trackID := range trackIDs {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO playlist_tracks (playlist_id, track_id, position) VALUES (?, ?, ?)`,
			playlistID, trackID, pos,
		)
		if err != nil {
			return fmt.Errorf("failed to add track %s at position %d: %w", trackID, pos, err)
		}
	}

	return nil
}

// Tracks returns the cached tracks of a playlist in playlist order.
func (r *PlaylistTrackRepository) Tracks(playlistID string) ([]models.Track, error) {
	query := `
		SELECT t.id, t.sequence, t.service, t.service_id, t.uri, t.title, t.artists, t.album, t.release_date,
			t.duration_ms, t.popularity, t.isrc, t.created_at, t.updated_at
		FROM playlist_tracks pt
		JOIN tracks t ON t.id = pt.track_id
		WHERE pt.playlist_id = ?
		ORDER BY pt.position ASC
	`

	rows, err := r.db.QueryContext(context.Background(), query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.Track{}
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track.Track())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// Count returns the number of cached tracks in a playlist.
func (r *PlaylistTrackRepository) Count(playlistID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM playlist_tracks WHERE playlist_id = ?`, playlistID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count playlist tracks: %w", err)
	}
	return n, nil
}
