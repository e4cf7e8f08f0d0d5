package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// SnapshotOpts contains configuration for offline playlist snapshots.
type SnapshotOpts struct {
	OutputDir  string  // Base output directory (default: mixtape_sources_{epoch})
	NumWorkers int     // Concurrent workers (default: engine fetch workers)
	RateLimit  float64 // Requests per second (default: engine fetch rate)
}

// SnapshotEntry is the outcome for a single playlist.
type SnapshotEntry struct {
	PlaylistID   string `json:"playlist_id"`
	PlaylistName string `json:"playlist_name"`
	Path         string `json:"path,omitempty"`
	Tracks       int    `json:"tracks"`
	Error        string `json:"error,omitempty"`
}

// SnapshotResult summarizes a snapshot run and is written as the manifest.
type SnapshotResult struct {
	TotalPlaylists  int             `json:"total_playlists"`
	Successful      int             `json:"successful"`
	Failed          int             `json:"failed"`
	OutputDirectory string          `json:"output_directory"`
	ManifestPath    string          `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	Results         []SnapshotEntry `json:"results"`
}

// Snapshot exports Spotify playlists to JSON files that the file catalog can mix offline.
//
// Each playlist is written to {id}.json and cached when a cache is configured.
// Failures are recorded per playlist; a manifest.json lists every outcome.
func (e *PlaylistEngine) Snapshot(ctx context.Context, prog chan<- ProgressUpdate, ids []string, opts SnapshotOpts) (*SnapshotResult, error) {
	if e.spotify == nil {
		return nil, e.spotifyUnavailable()
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one playlist id", shared.ErrMissingArgument)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("mixtape_sources_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = e.workers
	}
	opts.NumWorkers = min(opts.NumWorkers, maxWorkers)
	if opts.RateLimit <= 0 {
		opts.RateLimit = e.rate
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &SnapshotResult{
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		CreatedAt:       time.Now().UTC(),
		Results:         make([]SnapshotEntry, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan string, len(ids))
	results := make(chan SnapshotEntry, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.snapshotWorker(ctx, &wg, limiter, jobs, results, opts.OutputDir)
	}

	for _, id := range ids {
		jobs <- id
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Error == "" {
			result.Successful++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.PlaylistName, res.Path))
		} else {
			result.Failed++
			e.sendProgress(prog, exportFailedUpdate(completed, len(ids), res.PlaylistID, fmt.Errorf("%s", res.Error)))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "manifest.json")
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("snapshot completed but failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return result, fmt.Errorf("snapshot completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func (e *PlaylistEngine) snapshotWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan string,
	results chan<- SnapshotEntry,
	dir string,
) {
	defer wg.Done()

	for id := range jobs {
		entry := SnapshotEntry{PlaylistID: id, PlaylistName: fmt.Sprintf("Unknown (%s)", id)}

		if err := limiter.Wait(ctx); err != nil {
			entry.Error = err.Error()
			results <- entry
			continue
		}

		export, err := e.spotify.ExportPlaylist(ctx, id)
		if err != nil {
			entry.Error = fmt.Sprintf("failed to fetch playlist: %v", err)
			results <- entry
			continue
		}

		entry.PlaylistName = export.Playlist.Name
		entry.Tracks = len(export.Tracks)
		if entry.Path, err = writeSnapshot(dir, id, export); err != nil {
			entry.Error = err.Error()
		}

		if e.cache != nil {
			if err := e.cache.Store(CatalogSpotify, export); err != nil {
				e.logger.Warn("cache write failed", "source", id, "error", err)
			}
		}
		results <- entry
	}
}

func writeSnapshot(dir, id string, export *models.PlaylistExport) (string, error) {
	path := filepath.Join(dir, id+".json")
	data, err := shared.MarshalJSON(export, true)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}
	return path, nil
}
