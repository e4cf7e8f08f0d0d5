// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// MockService is a test double for [services.Service].
//
// Exports are served from Exports by playlist ID. Safe for concurrent use.
type MockService struct {
	ServiceName string
	Exports     map[string]*models.PlaylistExport
	ExportErr   error
	ImportErr   error

	mu       sync.Mutex
	exported []string
	imported []*models.PlaylistExport
}

// NewMockService returns a mock serving the given exports keyed by their playlist ID.
func NewMockService(name string, exports ...*models.PlaylistExport) *MockService {
	m := &MockService{ServiceName: name, Exports: make(map[string]*models.PlaylistExport, len(exports))}
	for _, e := range exports {
		m.Exports[e.Playlist.ID] = e
	}
	return m
}

func (m *MockService) Authenticate(ctx context.Context, credentials map[string]string) error {
	return nil
}

func (m *MockService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	playlists := make([]models.Playlist, 0, len(m.Exports))
	for _, e := range m.Exports {
		playlists = append(playlists, e.Playlist)
	}
	return playlists, nil
}

func (m *MockService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	export, err := m.ExportPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	return &export.Playlist, nil
}

func (m *MockService) ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	m.mu.Lock()
	m.exported = append(m.exported, playlistID)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.ExportErr != nil {
		return nil, m.ExportErr
	}
	if export, ok := m.Exports[playlistID]; ok {
		copied := *export
		copied.Tracks = slices.Clone(export.Tracks)
		return &copied, nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
}

func (m *MockService) ImportPlaylist(ctx context.Context, playlist *models.PlaylistExport) (*models.Playlist, error) {
	if m.ImportErr != nil {
		return nil, m.ImportErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.imported = append(m.imported, playlist)

	created := playlist.Playlist
	created.ID = fmt.Sprintf("imported-%d", len(m.imported))
	created.TrackCount = len(playlist.Tracks)
	return &created, nil
}

func (m *MockService) Name() string {
	if m.ServiceName == "" {
		return "mock"
	}
	return m.ServiceName
}

// Exported returns the playlist IDs passed to ExportPlaylist in call order.
func (m *MockService) Exported() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.exported)
}

// Imported returns every export passed to ImportPlaylist.
func (m *MockService) Imported() []*models.PlaylistExport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.imported)
}

// MockCache is an in-memory tasks.PlaylistCache keyed by service and playlist ID.
type MockCache struct {
	LoadErr  error
	StoreErr error

	mu      sync.Mutex
	entries map[string]*models.PlaylistExport
	stores  int
}

func NewMockCache() *MockCache {
	return &MockCache{entries: map[string]*models.PlaylistExport{}}
}

func (c *MockCache) Load(service, playlistID string, maxAge time.Duration) (*models.PlaylistExport, error) {
	if c.LoadErr != nil {
		return nil, c.LoadErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	export, ok := c.entries[service+"/"+playlistID]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", shared.ErrCacheMiss, service, playlistID)
	}
	return export, nil
}

func (c *MockCache) Store(service string, export *models.PlaylistExport) error {
	if c.StoreErr != nil {
		return c.StoreErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[service+"/"+export.Playlist.ID] = export
	c.stores++
	return nil
}

// Stores returns the number of successful Store calls.
func (c *MockCache) Stores() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stores
}

// MakeTracks returns n tracks with IDs prefix1..prefixN, 3 minutes long and descending popularity.
func MakeTracks(prefix string, n int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range n {
		id := fmt.Sprintf("%s%d", prefix, i+1)
		tracks[i] = models.Track{
			ID:          id,
			URI:         "spotify:track:" + id,
			Title:       "Song " + id,
			Artists:     []string{"Artist " + prefix},
			Album:       "Album " + prefix,
			ReleaseDate: "2020-01-01",
			DurationMS:  180000,
			Popularity:  max(90-i*5, 0),
		}
	}
	return tracks
}

// MakeExport wraps tracks in an export with the given playlist ID.
func MakeExport(id string, tracks []models.Track) *models.PlaylistExport {
	return &models.PlaylistExport{
		Playlist: models.Playlist{ID: id, Name: "Playlist " + id, TrackCount: len(tracks)},
		Tracks:   tracks,
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
