package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// FileService implements [Service] over [models.PlaylistExport] JSON documents.
//
// Playlist IDs are file paths. Relative paths resolve against the service directory.
type FileService struct {
	dir string
}

// NewFileService creates a catalog rooted at dir. An empty dir means the working directory.
func NewFileService(dir string) *FileService {
	if dir == "" {
		dir = "."
	}
	return &FileService{dir: dir}
}

func (f *FileService) Name() string { return "File" }

// Authenticate is a no-op; local files need no credentials.
func (f *FileService) Authenticate(ctx context.Context, credentials map[string]string) error {
	return nil
}

// GetPlaylists lists every *.json export in the directory, sorted by file name.
// Files that do not decode as exports are skipped.
func (f *FileService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	matches, err := filepath.Glob(filepath.Join(f.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", f.dir, err)
	}
	slices.Sort(matches)

	playlists := make([]models.Playlist, 0, len(matches))
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		export, err := f.read(path)
		if err != nil {
			continue
		}
		playlists = append(playlists, export.Playlist)
	}

	return playlists, nil
}

// GetPlaylist reads the playlist metadata stored at playlistID.
func (f *FileService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	export, err := f.ExportPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	return &export.Playlist, nil
}

// ExportPlaylist reads the export stored at playlistID.
//
// The playlist ID falls back to the file name and TrackCount always reflects the tracks in the file.
func (f *FileService) ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.read(f.resolve(playlistID))
}

// ImportPlaylist writes the export to a new file named after the playlist and returns the stored playlist.
func (f *FileService) ImportPlaylist(ctx context.Context, playlist *models.PlaylistExport) (*models.Playlist, error) {
	if playlist == nil || playlist.Playlist.Name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(playlist.Playlist.Name), "-"), "-")
	if slug == "" {
		slug = "playlist"
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", f.dir, err)
	}

	path := filepath.Join(f.dir, slug+".json")
	for i := 2; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			break
		}
		path = filepath.Join(f.dir, fmt.Sprintf("%s-%d.json", slug, i))
	}

	stored := *playlist
	stored.Playlist.ID = path
	stored.Playlist.TrackCount = len(playlist.Tracks)
	if stored.Tracks == nil {
		stored.Tracks = []models.Track{}
	}

	data, err := shared.MarshalJSON(stored, true)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}

	return &stored.Playlist, nil
}

func (f *FileService) resolve(playlistID string) string {
	if filepath.IsAbs(playlistID) {
		return playlistID
	}
	if _, err := os.Stat(playlistID); err == nil {
		return playlistID
	}
	return filepath.Join(f.dir, playlistID)
}

func (f *FileService) read(path string) (*models.PlaylistExport, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, path)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var export models.PlaylistExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("%w: %s is not a playlist export: %v", shared.ErrInvalidInput, path, err)
	}

	if export.Playlist.ID == "" {
		export.Playlist.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if export.Playlist.Name == "" {
		export.Playlist.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if export.Tracks == nil {
		export.Tracks = []models.Track{}
	}
	export.Playlist.TrackCount = len(export.Tracks)

	return &export, nil
}
