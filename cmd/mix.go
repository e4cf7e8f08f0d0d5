package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/mixer"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
)

// mixRequest builds a mix request from the config defaults overridden by flags.
func (r *Runner) mixRequest(cmd *cli.Command) (tasks.MixRequest, error) {
	cfg := r.cfg()

	defaults, err := cfg.Mix.Ratio(1)
	if err != nil {
		return tasks.MixRequest{}, err
	}
	refs, err := tasks.ParseSourceRefs(cmd.StringSlice("source"), defaults)
	if err != nil {
		return tasks.MixRequest{}, err
	}

	opts, err := cfg.Mix.Options()
	if err != nil {
		return tasks.MixRequest{}, err
	}
	if cmd.IsSet("songs") {
		opts.TotalSongs = cmd.Int("songs")
		opts.UseTimeLimit = false
	}
	if cmd.IsSet("minutes") {
		opts.TargetDuration = time.Duration(cmd.Int("minutes")) * time.Minute
		opts.UseTimeLimit = true
	}
	if cmd.IsSet("all") {
		opts.UseAllSongs = cmd.Bool("all")
	}
	if cmd.IsSet("strategy") {
		if opts.Strategy, err = mixer.ParseStrategy(cmd.String("strategy")); err != nil {
			return tasks.MixRequest{}, fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
		}
	}
	if cmd.IsSet("recency") {
		opts.RecencyBoost = cmd.Bool("recency")
	}
	if cmd.IsSet("shuffle") {
		opts.ShuffleWithinGroups = cmd.Bool("shuffle")
	}
	if cmd.IsSet("continue") {
		opts.ContinueWhenPlaylistEmpty = cmd.Bool("continue")
	}
	if cmd.IsSet("seed") {
		opts.Seed = uint64(cmd.Int("seed"))
	}

	if opts.UseTimeLimit && !opts.UseAllSongs && opts.TargetDuration <= 0 {
		return tasks.MixRequest{}, fmt.Errorf("%w: --minutes must be positive", shared.ErrInvalidFlag)
	}
	if !opts.UseTimeLimit && !opts.UseAllSongs && opts.TotalSongs <= 0 {
		return tasks.MixRequest{}, fmt.Errorf("%w: --songs must be positive", shared.ErrInvalidFlag)
	}

	maxAge, err := cfg.Cache.MaxAge()
	if err != nil {
		return tasks.MixRequest{}, err
	}

	return tasks.MixRequest{
		Sources: refs,
		Options: *opts,
		NoCache: cmd.Bool("no-cache"),
		MaxAge:  maxAge,
	}, nil
}

// publishOptions returns the playlist settings for --save, or nil when neither it nor fallback names a playlist.
func publishOptions(cmd *cli.Command, sources int, fallback string) *tasks.PublishOptions {
	name := cmd.String("save")
	if name == "" {
		name = fallback
	}
	if name == "" {
		return nil
	}
	description := cmd.String("description")
	if description == "" {
		description = fmt.Sprintf("Mixed from %d playlists with mixtape", sources)
	}
	return &tasks.PublishOptions{Name: name, Description: description, Public: cmd.Bool("public")}
}

// Mix builds a mix from the --source playlists and writes, prints or saves it.
func (r *Runner) Mix(ctx context.Context, cmd *cli.Command) error {
	req, err := r.mixRequest(cmd)
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	publish := publishOptions(cmd, len(req.Sources), "")

	engine := r.mixEngine(ctx)
	progress := make(chan tasks.ProgressUpdate, 20)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()

	var run *tasks.MixRunResult
	err = r.withReauth(ctx, func() error {
		var err error
		run, err = engine.Mix(ctx, progress, req)
		return err
	})
	if err == nil && publish != nil {
		err = r.withReauth(ctx, func() error {
			var err error
			run.Published, err = engine.Publish(ctx, progress, run.Mix, *publish)
			return err
		})
	}
	close(progress)
	<-done

	if run == nil {
		return err
	}
	if err != nil {
		r.logger.Error("failed to save mix to Spotify", "error", err)
	}

	title := "Mix"
	if publish != nil {
		title = publish.Name
	}

	if cmd.Bool("json") {
		if writeErr := r.writeJSON(run, true); writeErr != nil {
			return writeErr
		}
		return err
	}

	if outputFile := cmd.String("output"); outputFile != "" {
		if writeErr := formatter.WriteMixExport(run.Mix, title, format, outputFile); writeErr != nil {
			return writeErr
		}
		r.writeMixSummary(run)
		r.writePlain("✓ Mix written to %s\n", outputFile)
	} else {
		data, renderErr := formatter.RenderMix(run.Mix, title, format)
		if renderErr != nil {
			return renderErr
		}
		if _, writeErr := r.output.Write(data); writeErr != nil {
			return writeErr
		}
	}

	if run.Published != nil {
		r.writePublished(run.Published)
	}
	return err
}

func (r *Runner) writeMixSummary(run *tasks.MixRunResult) {
	mix := run.Mix
	r.writePlainHeader("Mix Complete")
	r.writePlain("Tracks: %d (%s)\n", len(mix.Tracks), shared.FormatDuration(mix.TotalDurationMS))
	r.writePlain("Mode: %s  Strategy: %s\n", mix.Mode, mix.Strategy)
	if mix.StoppedEarly {
		r.writePlain("⚠ Stopped early, exhausted sources: %v\n", mix.ExhaustedPlaylists)
	}
	if mix.HitIterationCap {
		r.writePlain("⚠ Iteration cap reached\n")
	}

	r.writePlainln("Distribution:")
	for _, s := range mix.Distribution {
		name := s.Name
		if name == "" {
			name = s.ID
		}
		r.writePlain("  %s: %d tracks, %s, %.1f%% (target %.1f%%)\n",
			name, s.Count, shared.FormatDuration(s.DurationMS), s.ActualRatio*100, s.TargetRatio*100)
	}
	for _, src := range run.Sources {
		if src.Cached {
			r.writePlain("  (%s served from cache)\n", src.ID)
		}
	}
	r.writePlain("\n")
}

func (r *Runner) writePublished(p *models.Playlist) {
	r.writePlainln("✓ Saved to Spotify: %s", p.Name)
	r.writePlain("  ID: %s\n", p.ID)
	r.writePlain("  Tracks: %d\n", p.TrackCount)
	if p.URI != "" {
		r.writePlain("  URI: %s\n", p.URI)
	}
}

// mixFlags are shared by the mix and tui commands.
func mixFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:     "source",
			Aliases:  []string{"s"},
			Usage:    "Source playlist as ID[:weight[:min[:max[:type]]]]; Spotify ID, URI or link, or a .json export",
			Required: true,
		},
		&cli.IntFlag{
			Name:    "songs",
			Aliases: []string{"n"},
			Usage:   "Number of songs in the mix",
		},
		&cli.IntFlag{
			Name:    "minutes",
			Aliases: []string{"m"},
			Usage:   "Target mix duration in minutes",
		},
		&cli.BoolFlag{
			Name:  "all",
			Usage: "Use as many songs from every source as the ratios allow",
		},
		&cli.StringFlag{
			Name:  "strategy",
			Usage: "Popularity strategy: mixed, front-loaded, mid-peak or crescendo",
		},
		&cli.BoolFlag{
			Name:  "recency",
			Usage: "Boost recently released tracks",
		},
		&cli.BoolFlag{
			Name:  "shuffle",
			Usage: "Shuffle tracks within popularity groups",
		},
		&cli.BoolFlag{
			Name:  "continue",
			Usage: "Keep mixing when a source runs out of songs",
		},
		&cli.IntFlag{
			Name:  "seed",
			Usage: "Shuffle seed for reproducible mixes",
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "Refetch every Spotify source instead of using the cache",
		},
		&cli.StringFlag{
			Name:  "save",
			Usage: "Save the mix to Spotify as a new playlist with this name",
		},
		&cli.StringFlag{
			Name:  "description",
			Usage: "Description of the saved playlist",
		},
		&cli.BoolFlag{
			Name:  "public",
			Usage: "Make the saved playlist public",
		},
	}
}

func mixCommand(r *Runner) *cli.Command {
	flags := append(mixFlags(),
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: json, csv, markdown or txt",
			Value:   formatter.FormatText,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the mix to this file instead of stdout",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print the full mix result as JSON",
		},
	)

	return &cli.Command{
		Name:   "mix",
		Usage:  "Mix several playlists into one",
		Flags:  flags,
		Action: r.Mix,
	}
}
