package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/desertthunder/mixtape/internal/mixer"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

const (
	defaultWorkers   = 4
	maxWorkers       = 10
	defaultRateLimit = 5.0
)

// PlaylistCache stores source playlist snapshots between runs.
//
// Implemented by repositories.PlaylistCacheAdapter.
type PlaylistCache interface {
	Load(service, playlistID string, maxAge time.Duration) (*models.PlaylistExport, error)
	Store(service string, export *models.PlaylistExport) error
}

// MixRequest describes one mix run.
type MixRequest struct {
	Sources []SourceRef
	Options mixer.Options
	NoCache bool          // always fetch from the catalog
	MaxAge  time.Duration // cache TTL, non-positive accepts any snapshot
	Publish *PublishOptions
}

// PublishOptions names the playlist a mix is saved to.
type PublishOptions struct {
	Name        string
	Description string
	Public      bool
}

// SourceSummary describes a resolved source.
type SourceSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Catalog string `json:"catalog"`
	Tracks  int    `json:"tracks"`
	Cached  bool   `json:"cached"`
}

// MixRunResult contains all data from a mix run.
type MixRunResult struct {
	Sources   []SourceSummary  `json:"sources"`
	Mix       *mixer.Result    `json:"mix"`
	Published *models.Playlist `json:"published,omitempty"`
}

// PlaylistEngine resolves source playlists, mixes them and publishes the result.
type PlaylistEngine struct {
	spotify    services.Service
	spotifyErr error
	files      services.Service
	cache   PlaylistCache
	mixer   *mixer.Mixer
	logger  *log.Logger
	workers int
	rate    float64
}

// EngineOption configures a [PlaylistEngine].
type EngineOption func(*PlaylistEngine)

// WithCache enables the source snapshot cache.
func WithCache(c PlaylistCache) EngineOption {
	return func(e *PlaylistEngine) { e.cache = c }
}

// WithLogger sets the engine logger. The mixer logs through it at debug level.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *PlaylistEngine) { e.logger = l }
}

// WithSpotifyUnavailable records why no Spotify service was passed to [NewPlaylistEngine].
// Spotify operations then fail with err alongside [shared.ErrServiceUnavailable].
func WithSpotifyUnavailable(err error) EngineOption {
	return func(e *PlaylistEngine) { e.spotifyErr = err }
}

// WithMixer replaces the default mixer.
func WithMixer(m *mixer.Mixer) EngineOption {
	return func(e *PlaylistEngine) { e.mixer = m }
}

// WithFetchLimits bounds concurrent source fetches and catalog requests per second.
// Values outside the accepted range fall back to the defaults.
func WithFetchLimits(workers int, perSecond float64) EngineOption {
	return func(e *PlaylistEngine) {
		if workers > 0 {
			e.workers = min(workers, maxWorkers)
		}
		if perSecond > 0 {
			e.rate = perSecond
		}
	}
}

// NewPlaylistEngine creates a new PlaylistEngine with the provided services.
// Either service may be nil; sources from a missing catalog fail with [shared.ErrServiceUnavailable].
func NewPlaylistEngine(spotify, files services.Service, opts ...EngineOption) *PlaylistEngine {
	e := &PlaylistEngine{
		spotify: spotify,
		files:   files,
		logger:  log.New(io.Discard),
		workers: defaultWorkers,
		rate:    defaultRateLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.mixer == nil {
		e.mixer = mixer.New(mixer.WithLogger(e.logger))
	}
	return e
}

func (e *PlaylistEngine) spotifyUnavailable() error {
	if e.spotifyErr != nil {
		return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, e.spotifyErr)
	}
	return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Mix resolves every source, runs the mixer and, when requested, publishes the mix to Spotify.
//
// A publish failure still returns the mix alongside the error.
func (e *PlaylistEngine) Mix(ctx context.Context, progress chan<- ProgressUpdate, req MixRequest) (*MixRunResult, error) {
	if len(req.Sources) == 0 {
		return nil, fmt.Errorf("%w: at least one source playlist", shared.ErrMissingArgument)
	}

	e.sendProgress(progress, resolveSourcesUpdate(len(req.Sources)))
	exports, summaries, err := e.fetchSources(ctx, progress, req)
	if err != nil {
		return nil, err
	}

	input := mixer.Input{
		Sources: make([]mixer.Source, len(req.Sources)),
		Ratios:  make(map[string]mixer.RatioConfig, len(req.Sources)),
		Options: &req.Options,
	}
	for i, ref := range req.Sources {
		input.Sources[i] = mixer.Source{ID: ref.ID, Name: exports[i].Playlist.Name, Tracks: exports[i].Tracks}
		input.Ratios[ref.ID] = ref.Ratio
	}

	e.sendProgress(progress, mixingUpdate(len(input.Sources)))
	mixed, err := e.mixer.Mix(input)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, mixedUpdate(mixed))
	e.logger.Info("mix complete", "tracks", len(mixed.Tracks), "mode", mixed.Mode, "stopped_early", mixed.StoppedEarly)

	result := &MixRunResult{Sources: summaries, Mix: mixed}
	if req.Publish == nil {
		return result, nil
	}

	published, err := e.Publish(ctx, progress, mixed, *req.Publish)
	if err != nil {
		return result, err
	}
	result.Published = published
	return result, nil
}

// Publish creates a Spotify playlist holding the mixed tracks in order.
func (e *PlaylistEngine) Publish(ctx context.Context, progress chan<- ProgressUpdate, mixed *mixer.Result, opts PublishOptions) (*models.Playlist, error) {
	if e.spotify == nil {
		return nil, e.spotifyUnavailable()
	}
	if mixed == nil || len(mixed.Tracks) == 0 {
		return nil, fmt.Errorf("%w: cannot publish an empty mix", shared.ErrInvalidInput)
	}
	if opts.Name == "" {
		return nil, fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	export := &models.PlaylistExport{
		Playlist: models.Playlist{Name: opts.Name, Description: opts.Description, Public: opts.Public},
		Tracks:   make([]models.Track, len(mixed.Tracks)),
	}
	for i, t := range mixed.Tracks {
		export.Tracks[i] = t.Track
	}

	e.sendProgress(progress, createDestinationUpdate(opts.Name, len(export.Tracks)))
	created, err := e.spotify.ImportPlaylist(ctx, export)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	e.sendProgress(progress, createPlaylistUpdate(created))
	e.logger.Info("playlist created", "id", created.ID, "tracks", created.TrackCount)
	return created, nil
}

// fetchSources resolves all sources concurrently, preserving request order.
func (e *PlaylistEngine) fetchSources(ctx context.Context, progress chan<- ProgressUpdate, req MixRequest) ([]*models.PlaylistExport, []SourceSummary, error) {
	exports := make([]*models.PlaylistExport, len(req.Sources))
	summaries := make([]SourceSummary, len(req.Sources))
	limiter := rate.NewLimiter(rate.Limit(e.rate), 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	done := make(chan SourceSummary, len(req.Sources))
	for i, ref := range req.Sources {
		g.Go(func() error {
			export, cached, err := e.fetchSource(gctx, limiter, ref, req)
			if err != nil {
				return fmt.Errorf("source %s: %w", ref.ID, err)
			}

			exports[i] = export
			summaries[i] = SourceSummary{
				ID:      ref.ID,
				Name:    export.Playlist.Name,
				Catalog: ref.Catalog,
				Tracks:  len(export.Tracks),
				Cached:  cached,
			}
			done <- summaries[i]
			return nil
		})
	}

	err := g.Wait()
	close(done)

	step := 0
	for s := range done {
		step++
		e.sendProgress(progress, fetchedSourceUpdate(step, len(req.Sources), s))
	}

	if err != nil {
		return nil, nil, err
	}
	return exports, summaries, nil
}

// fetchSource loads one source from the cache, falling back to its catalog and writing the result back.
func (e *PlaylistEngine) fetchSource(ctx context.Context, limiter *rate.Limiter, ref SourceRef, req MixRequest) (*models.PlaylistExport, bool, error) {
	var svc services.Service
	switch ref.Catalog {
	case CatalogFile:
		svc = e.files
	default:
		svc = e.spotify
	}
	if svc == nil {
		if ref.Catalog == CatalogSpotify {
			return nil, false, e.spotifyUnavailable()
		}
		return nil, false, fmt.Errorf("%w: %s catalog not initialized", shared.ErrServiceUnavailable, ref.Catalog)
	}

	useCache := e.cache != nil && !req.NoCache && ref.Catalog == CatalogSpotify
	if useCache {
		export, err := e.cache.Load(ref.Catalog, ref.ID, req.MaxAge)
		if err == nil {
			e.logger.Debug("cache hit", "source", ref.ID, "tracks", len(export.Tracks))
			return export, true, nil
		}
		if !errors.Is(err, shared.ErrCacheMiss) {
			e.logger.Warn("cache read failed", "source", ref.ID, "error", err)
		}
	}

	if ref.Catalog == CatalogSpotify {
		if err := limiter.Wait(ctx); err != nil {
			return nil, false, err
		}
	}

	export, err := svc.ExportPlaylist(ctx, ref.ID)
	if err != nil {
		return nil, false, err
	}
	if export.Playlist.ID == "" {
		export.Playlist.ID = ref.ID
	}

	if e.cache != nil && ref.Catalog == CatalogSpotify {
		if err := e.cache.Store(ref.Catalog, export); err != nil {
			e.logger.Warn("cache write failed", "source", ref.ID, "error", err)
		}
	}

	return export, false, nil
}
