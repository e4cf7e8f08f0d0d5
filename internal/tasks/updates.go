package tasks

import (
	"fmt"

	"github.com/desertthunder/mixtape/internal/mixer"
	"github.com/desertthunder/mixtape/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ResolveSources Phase = iota
	FetchSource
	MixTracks
	CreatePlaylist
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case ResolveSources:
		return "resolve_sources"
	case FetchSource:
		return "fetch_source"
	case MixTracks:
		return "mix_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func resolveSourcesUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveSources,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Resolving %d source playlists...", total),
	}
}

func fetchedSourceUpdate(step, total int, src SourceSummary) ProgressUpdate {
	origin := src.Catalog
	if src.Cached {
		origin = "cache"
	}
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s (%d tracks, %s)", step, total, src.Name, src.Tracks, origin),
		Data:    src,
	}
}

func mixingUpdate(sources int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MixTracks,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Mixing %d sources...", sources),
	}
}

func mixedUpdate(res *mixer.Result) ProgressUpdate {
	msg := fmt.Sprintf("Mixed %d tracks", len(res.Tracks))
	if res.StoppedEarly {
		msg += fmt.Sprintf(" (stopped early, exhausted: %v)", res.ExhaustedPlaylists)
	}
	return ProgressUpdate{
		Phase:   MixTracks,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    res,
	}
}

func createDestinationUpdate(name string, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist %q with %d tracks...", name, tracks),
	}
}

func createPlaylistUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func exportCompletedUpdate(step, total int, name, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s -> %s", step, total, name, path),
	}
}

func exportFailedUpdate(step, total int, id string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, id, err),
	}
}
