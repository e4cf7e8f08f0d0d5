package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixtape/internal/mixer"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
)

// CachePlaylist fetches a Spotify playlist and stores it as the current cached snapshot.
func (r *Runner) CachePlaylist(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")
	if playlistID == "" {
		return fmt.Errorf("%w: --id flag is required", shared.ErrMissingArgument)
	}

	cache, err := r.playlistCache()
	if err != nil {
		return err
	}
	spotify, err := r.spotifyService(ctx)
	if err != nil {
		return err
	}

	ref, err := tasks.ParseSourceRef(playlistID, mixer.RatioConfig{Weight: 1})
	if err != nil {
		return err
	}
	if ref.Catalog != tasks.CatalogSpotify {
		return fmt.Errorf("%w: only Spotify playlists are cached", shared.ErrInvalidArgument)
	}

	r.logger.Infof("caching Spotify playlist: %s", ref.ID)

	var export *models.PlaylistExport
	err = r.withReauth(ctx, func() error {
		var err error
		export, err = spotify.ExportPlaylist(ctx, ref.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to export playlist: %w", err)
	}
	if export.Playlist.ID == "" {
		export.Playlist.ID = ref.ID
	}

	if err := cache.Store(tasks.CatalogSpotify, export); err != nil {
		return fmt.Errorf("failed to cache playlist: %w", err)
	}

	r.logger.Infof("cached playlist: %s (%d tracks)", export.Playlist.Name, len(export.Tracks))
	r.writePlainln("✓ Playlist cached: %s", export.Playlist.Name)
	r.writePlain("  Tracks: %d\n", len(export.Tracks))
	return nil
}

// CacheList lists cached playlists with their age and staleness under the configured TTL.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	cache, err := r.playlistCache()
	if err != nil {
		return err
	}
	maxAge, err := r.cfg().Cache.MaxAge()
	if err != nil {
		return err
	}

	playlists, err := cache.List(cmd.String("service"))
	if err != nil {
		return fmt.Errorf("failed to list cache: %w", err)
	}

	cached := make([]int, len(playlists))
	for i, p := range playlists {
		if cached[i], err = cache.CachedTracks(p); err != nil {
			return fmt.Errorf("failed to count cached tracks of %s: %w", p.ServiceID(), err)
		}
	}

	if cmd.Bool("json") {
		out := make([]map[string]any, len(playlists))
		for i, p := range playlists {
			out[i] = map[string]any{
				"service":       p.Service(),
				"id":            p.ServiceID(),
				"name":          p.Name(),
				"tracks":        p.TrackCount(),
				"cached_tracks": cached[i],
				"fetched_at":    p.FetchedAt(),
				"stale":         p.Stale(time.Now(), maxAge),
			}
		}
		return r.writeJSON(out, true)
	}

	if len(playlists) == 0 {
		return r.writePlain("No cached playlists\n")
	}

	r.writePlain("Cached playlists (%d):\n\n", len(playlists))
	for i, p := range playlists {
		status := ""
		if p.Stale(time.Now(), maxAge) {
			status = " (stale)"
		}
		r.writePlain("%s  %s/%s  %d/%d tracks cached  fetched %s%s\n",
			p.Name(), p.Service(), p.ServiceID(), cached[i], p.TrackCount(), p.FetchedAt().Local().Format(time.DateTime), status)
	}
	return nil
}

// CacheClear drops one cached playlist with --id, or every cached playlist of --service.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	cache, err := r.playlistCache()
	if err != nil {
		return err
	}

	if id := cmd.String("id"); id != "" {
		service := cmd.String("service")
		if service == "" {
			service = tasks.CatalogSpotify
		}
		if err := cache.Invalidate(service, id); err != nil {
			return fmt.Errorf("failed to clear %s: %w", id, err)
		}
		return r.writePlain("✓ Removed %s from cache\n", id)
	}

	n, err := cache.Clear(cmd.String("service"))
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return r.writePlain("✓ Removed %d cached playlists\n", n)
}

// cacheCommand handles the source playlist cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the local cache of source playlists",
		Commands: []*cli.Command{
			{
				Name:  "playlist",
				Usage: "Fetch a Spotify playlist into the cache",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID, URI or link to cache",
						Required: true,
					},
				},
				Action: r.CachePlaylist,
			},
			{
				Name:  "list",
				Usage: "List cached playlists",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "service",
						Usage: "Only list playlists of this catalog",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheList,
			},
			{
				Name:  "clear",
				Usage: "Remove cached playlists",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "Only remove this playlist",
					},
					&cli.StringFlag{
						Name:  "service",
						Usage: "Only remove playlists of this catalog",
					},
				},
				Action: r.CacheClear,
			},
		},
	}
}
