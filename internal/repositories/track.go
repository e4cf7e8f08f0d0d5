package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

const trackColumns = `id, sequence, service, service_id, uri, title, artists, album, release_date, duration_ms, popularity, isrc, created_at, updated_at`

// TrackRepository implements models.Repository[*models.PersistedTrack] for track caching.
//
// Tracks are keyed by service and service ID, so a track shared by several cached playlists is stored once.
type TrackRepository struct {
	db DBTX
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db DBTX) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a new [models.PersistedTrack] into the database with generated ID and sequence
func (r *TrackRepository) Create(track *models.PersistedTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "tracks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	track.SetID(shared.GenerateID())
	track.SetSequence(sequence)

	artists, err := json.Marshal(artistsOf(track.Track()))
	if err != nil {
		return fmt.Errorf("failed to encode artists: %w", err)
	}

	query := `
		INSERT INTO tracks (` + trackColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	t := track.Track()
	_, err = r.db.ExecContext(context.Background(), query,
		track.ID(),
		sequence,
		track.Service(),
		track.ServiceID(),
		t.URI,
		t.Title,
		string(artists),
		t.Album,
		t.ReleaseDate,
		t.DurationMS,
		t.Popularity,
		t.ISRC,
		track.CreatedAt(),
		track.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	return nil
}

// Get retrieves a track by ID
func (r *TrackRepository) Get(id string) (*models.PersistedTrack, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`
	return scanTrack(r.db.QueryRowContext(context.Background(), query, id))
}

// GetByServiceID retrieves a track by service and service_id
func (r *TrackRepository) GetByServiceID(service, serviceID string) (*models.PersistedTrack, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE service = ? AND service_id = ?`
	return scanTrack(r.db.QueryRowContext(context.Background(), query, service, serviceID))
}

// Update refreshes the stored metadata of an existing track
func (r *TrackRepository) Update(track *models.PersistedTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	artists, err := json.Marshal(artistsOf(track.Track()))
	if err != nil {
		return fmt.Errorf("failed to encode artists: %w", err)
	}

	now := time.Now()
	track.SetUpdatedAt(now)

	query := `
		UPDATE tracks
		SET uri = ?, title = ?, artists = ?, album = ?, release_date = ?, duration_ms = ?, popularity = ?, isrc = ?, updated_at = ?
		WHERE id = ?
	`

	t := track.Track()
	result, err := r.db.ExecContext(context.Background(), query,
		t.URI,
		t.Title,
		string(artists),
		t.Album,
		t.ReleaseDate,
		t.DurationMS,
		t.Popularity,
		t.ISRC,
		now,
		track.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}

	return affected(result, "track", track.ID())
}

// Upsert stores the track, updating the existing row for the same service and service_id.
// Returns the stored entity with its database ID.
func (r *TrackRepository) Upsert(service string, t models.Track) (*models.PersistedTrack, error) {
	existing, err := r.GetByServiceID(service, t.ID)
	switch {
	case err == nil:
		existing.SetTrack(t)
		if err := r.Update(existing); err != nil {
			return nil, err
		}
		return existing, nil
	case errors.Is(err, ErrNotFound):
		track := models.NewPersistedTrack(0, service, t.ID, t)
		if err := r.Create(track); err != nil {
			return nil, err
		}
		return track, nil
	default:
		return nil, err
	}
}

// Delete removes a track by ID
func (r *TrackRepository) Delete(id string) error {
	result, err := r.db.ExecContext(context.Background(), `DELETE FROM tracks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	return affected(result, "track", id)
}

// DeleteOrphans removes tracks no cached playlist references any more.
func (r *TrackRepository) DeleteOrphans() (int, error) {
	result, err := r.db.ExecContext(context.Background(), `
		DELETE FROM tracks
		WHERE id NOT IN (SELECT DISTINCT track_id FROM playlist_tracks)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned tracks: %w", err)
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// List retrieves all tracks matching the given criteria.
//
// Supported criteria: "service" and "isrc" (strings).
func (r *TrackRepository) List(criteria map[string]any) ([]*models.PersistedTrack, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE 1 = 1`
	args := []any{}

	if service, ok := criteria["service"].(string); ok && service != "" {
		query += " AND service = ?"
		args = append(args, service)
	}

	if isrc, ok := criteria["isrc"].(string); ok && isrc != "" {
		query += " AND isrc = ?"
		args = append(args, isrc)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.PersistedTrack
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

func artistsOf(t models.Track) []string {
	if t.Artists == nil {
		return []string{}
	}
	return t.Artists
}

func scanTrack(row scanner) (*models.PersistedTrack, error) {
	var (
		id        string
		sequence  int
		service   string
		serviceID string
		artists   string
		dto       models.Track
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&id, &sequence, &service, &serviceID, &dto.URI, &dto.Title, &artists, &dto.Album, &dto.ReleaseDate, &dto.DurationMS, &dto.Popularity, &dto.ISRC, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: track", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	if err := json.Unmarshal([]byte(artists), &dto.Artists); err != nil {
		return nil, fmt.Errorf("failed to decode artists for track %s: %w", id, err)
	}

	dto.ID = serviceID
	track := models.NewPersistedTrack(sequence, service, serviceID, dto)
	track.SetID(id)
	track.SetCreatedAt(createdAt)
	track.SetUpdatedAt(updatedAt)

	return track, nil
}
