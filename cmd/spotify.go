package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
)

// SpotifyPlaylists lists the user's Spotify playlists with optional limit.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")
	save := cmd.String("save")

	spotify, err := r.spotifyService(ctx)
	if err != nil {
		return err
	}

	r.logger.Infof("listing spotify playlists with limit %v", limit)

	var playlists []models.Playlist
	err = r.withReauth(ctx, func() error {
		var err error
		playlists, err = spotify.GetPlaylists(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if save != "" {
		data, err := shared.MarshalJSON(playlists, true)
		if err != nil {
			return fmt.Errorf("failed to marshal playlists: %w", err)
		}
		if err := os.WriteFile(save, data, 0644); err != nil {
			r.logger.Warn("failed to save playlists", "error", err)
		} else {
			r.logger.Info("playlists saved", "file", save)
		}
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		if p.Public {
			r.writePlain("   Visibility: Public\n")
		} else {
			r.writePlain("   Visibility: Private\n")
		}
		r.writePlain("\n")
	}

	return nil
}

// SpotifyExport exports playlists with all tracks.
//
// A single --id without --dir is rendered in --format to --output or stdout.
// Several ids, or --dir, write an offline snapshot that can be mixed with .json sources.
func (r *Runner) SpotifyExport(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.StringSlice("id")
	dir := cmd.String("dir")

	if len(ids) == 0 {
		return fmt.Errorf("%w: --id flag is required", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if len(ids) > 1 || dir != "" {
		return r.spotifySnapshot(ctx, ids, dir, cmd.Int("workers"))
	}

	spotify, err := r.spotifyService(ctx)
	if err != nil {
		return err
	}

	playlistID := ids[0]
	r.logger.Infof("exporting spotify playlist %v", playlistID)

	var export *models.PlaylistExport
	err = r.withReauth(ctx, func() error {
		var err error
		export, err = spotify.ExportPlaylist(ctx, playlistID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to export playlist: %w", err)
	}

	if outputFile := cmd.String("output"); outputFile != "" {
		if err := formatter.WriteExport(export, format, outputFile); err != nil {
			return err
		}

		r.logger.Infof("playlist exported to %v with %v tracks", outputFile, len(export.Tracks))

		r.writePlain("✓ Playlist exported to %s\n", outputFile)
		r.writePlain("  Playlist: %s\n", export.Playlist.Name)
		r.writePlain("  Tracks: %d\n", len(export.Tracks))
		return nil
	}

	data, err := formatter.RenderExport(export, format)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

func (r *Runner) spotifySnapshot(ctx context.Context, ids []string, dir string, workers int) error {
	engine := r.mixEngine(ctx)

	progress := make(chan tasks.ProgressUpdate, 20)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()

	result, err := engine.Snapshot(ctx, progress, ids, tasks.SnapshotOpts{
		OutputDir:  dir,
		NumWorkers: workers,
		RateLimit:  r.cfg().Mix.FetchRate,
	})
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlainHeader("Snapshot Complete")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	r.writePlain("Successful: %d/%d\n", result.Successful, result.TotalPlaylists)
	for _, entry := range result.Results {
		if entry.Error != "" {
			r.writePlain("  ✗ %s: %s\n", entry.PlaylistID, entry.Error)
			continue
		}
		r.writePlain("  ✓ %s (%d tracks) → %s\n", entry.PlaylistName, entry.Tracks, entry.Path)
	}

	if result.Failed > 0 {
		return fmt.Errorf("%w: %d of %d playlists failed to export", shared.ErrAPIRequest, result.Failed, result.TotalPlaylists)
	}
	return nil
}
