package models

import (
	"errors"
	"strings"
	"time"
)

// Playlist represents a music playlist from any service
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
	URI         string `json:"uri,omitempty"`
}

// PlaylistExport represents a playlist with all its tracks
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}

// Track represents a music track from any service
type Track struct {
	ID          string   `json:"id"`
	URI         string   `json:"uri"`
	Title       string   `json:"title"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album,omitempty"`
	ReleaseDate string   `json:"release_date,omitempty"` // YYYY, YYYY-MM or YYYY-MM-DD
	DurationMS  int      `json:"duration_ms"`
	Popularity  int      `json:"popularity"` // 0-100
	ISRC        string   `json:"isrc,omitempty"`
}

// Artist returns the comma-joined artist credits.
func (t Track) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// Duration returns the track length as a [time.Duration].
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// Released parses the album release date.
//
// Spotify reports dates at year, month or day precision; missing parts resolve to the first day of the period.
func (t Track) Released() (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if ts, err := time.Parse(layout, t.ReleaseDate); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// PersistedPlaylist is a cached snapshot of a playlist fetched from a service.
type PersistedPlaylist struct {
	base
	service   string
	serviceID string
	playlist  Playlist
	fetchedAt time.Time
}

// NewPersistedPlaylist creates a cache entity for a playlist fetched now.
func NewPersistedPlaylist(sequence int, service, serviceID string, p Playlist) *PersistedPlaylist {
	b := newBase(sequence)
	return &PersistedPlaylist{base: b, service: service, serviceID: serviceID, playlist: p, fetchedAt: b.createdAt}
}

func (p *PersistedPlaylist) Service() string          { return p.service }
func (p *PersistedPlaylist) ServiceID() string        { return p.serviceID }
func (p *PersistedPlaylist) Name() string             { return p.playlist.Name }
func (p *PersistedPlaylist) Description() string      { return p.playlist.Description }
func (p *PersistedPlaylist) TrackCount() int          { return p.playlist.TrackCount }
func (p *PersistedPlaylist) Public() bool             { return p.playlist.Public }
func (p *PersistedPlaylist) Playlist() Playlist       { return p.playlist }
func (p *PersistedPlaylist) SetPlaylist(pl Playlist)  { p.playlist = pl }
func (p *PersistedPlaylist) FetchedAt() time.Time     { return p.fetchedAt }
func (p *PersistedPlaylist) SetFetchedAt(t time.Time) { p.fetchedAt = t }

// Stale reports whether the snapshot is older than maxAge. A non-positive maxAge never expires.
func (p *PersistedPlaylist) Stale(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return now.Sub(p.fetchedAt) > maxAge
}

// Validate checks the required cache keys.
func (p *PersistedPlaylist) Validate() error {
	if p.service == "" {
		return errors.New("playlist service is required")
	}
	if p.serviceID == "" {
		return errors.New("playlist service id is required")
	}
	return nil
}

// PersistedTrack is cached track metadata keyed by service and service ID.
type PersistedTrack struct {
	base
	service   string
	serviceID string
	track     Track
}

// NewPersistedTrack creates a cache entity for a track.
func NewPersistedTrack(sequence int, service, serviceID string, t Track) *PersistedTrack {
	return &PersistedTrack{base: newBase(sequence), service: service, serviceID: serviceID, track: t}
}

func (t *PersistedTrack) Service() string   { return t.service }
func (t *PersistedTrack) ServiceID() string { return t.serviceID }
func (t *PersistedTrack) Track() Track      { return t.track }
func (t *PersistedTrack) SetTrack(tr Track) { t.track = tr }

// Validate checks the required cache keys and the fields the mixer relies on.
func (t *PersistedTrack) Validate() error {
	if t.service == "" {
		return errors.New("track service is required")
	}
	if t.serviceID == "" {
		return errors.New("track service id is required")
	}
	if t.track.Title == "" {
		return errors.New("track title is required")
	}
	return nil
}
