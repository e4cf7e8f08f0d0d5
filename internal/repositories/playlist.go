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

const playlistColumns = `id, sequence, service, service_id, name, description, track_count, public, uri, fetched_at, created_at, updated_at`

// PlaylistRepository implements models.Repository[*models.PersistedPlaylist] for the source cache.
type PlaylistRepository struct {
	db DBTX
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db DBTX) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist into the database with generated ID and sequence
func (r *PlaylistRepository) Create(playlist *models.PersistedPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	playlist.SetID(shared.GenerateID())
	playlist.SetSequence(sequence)

	query := `
		INSERT INTO playlists (` + playlistColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	p := playlist.Playlist()
	_, err = r.db.ExecContext(context.Background(), query,
		playlist.ID(),
		sequence,
		playlist.Service(),
		playlist.ServiceID(),
		p.Name,
		p.Description,
		p.TrackCount,
		p.Public,
		p.URI,
		playlist.FetchedAt(),
		playlist.CreatedAt(),
		playlist.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// Get retrieves a playlist by ID
func (r *PlaylistRepository) Get(id string) (*models.PersistedPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ?`
	return scanPlaylist(r.db.QueryRowContext(context.Background(), query, id))
}

// GetByServiceID retrieves a playlist by service and service_id
func (r *PlaylistRepository) GetByServiceID(service, serviceID string) (*models.PersistedPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE service = ? AND service_id = ?`
	return scanPlaylist(r.db.QueryRowContext(context.Background(), query, service, serviceID))
}

// Update writes the playlist metadata and fetch time
func (r *PlaylistRepository) Update(playlist *models.PersistedPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	playlist.SetUpdatedAt(now)

	query := `
		UPDATE playlists
		SET name = ?, description = ?, track_count = ?, public = ?, uri = ?, fetched_at = ?, updated_at = ?
		WHERE id = ?
	`

	p := playlist.Playlist()
	result, err := r.db.ExecContext(context.Background(), query,
		p.Name,
		p.Description,
		p.TrackCount,
		p.Public,
		p.URI,
		playlist.FetchedAt(),
		now,
		playlist.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	return affected(result, "playlist", playlist.ID())
}

// Delete removes a playlist and, through the foreign key cascade, its track listing
func (r *PlaylistRepository) Delete(id string) error {
	result, err := r.db.ExecContext(context.Background(), `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return affected(result, "playlist", id)
}

// DeleteByService removes every cached playlist, or only those of one service when service is set.
func (r *PlaylistRepository) DeleteByService(service string) (int, error) {
	query, args := `DELETE FROM playlists`, []any{}
	if service != "" {
		query += ` WHERE service = ?`
		args = append(args, service)
	}

	result, err := r.db.ExecContext(context.Background(), query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to clear playlists: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(n), nil
}

// List retrieves all playlists matching the given criteria.
//
// Supported criteria: "service" (string) and "fetched_before" ([time.Time]).
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.PersistedPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE 1 = 1`
	args := []any{}

	if service, ok := criteria["service"].(string); ok && service != "" {
		query += " AND service = ?"
		args = append(args, service)
	}

	if before, ok := criteria["fetched_before"].(time.Time); ok && !before.IsZero() {
		query += " AND fetched_at < ?"
		args = append(args, before)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.PersistedPlaylist
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(row scanner) (*models.PersistedPlaylist, error) {
	var (
		id        string
		sequence  int
		service   string
		serviceID string
		dto       models.Playlist
		fetchedAt time.Time
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&id, &sequence, &service, &serviceID, &dto.Name, &dto.Description, &dto.TrackCount, &dto.Public, &dto.URI, &fetchedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: playlist", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	dto.ID = serviceID
	playlist := models.NewPersistedPlaylist(sequence, service, serviceID, dto)
	playlist.SetID(id)
	playlist.SetFetchedAt(fetchedAt)
	playlist.SetCreatedAt(createdAt)
	playlist.SetUpdatedAt(updatedAt)

	return playlist, nil
}
