package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/mixtape/internal/mixer"
	"github.com/desertthunder/mixtape/internal/shared"
)

var _ list.Item = trackItem{}

// trackItem wraps [mixer.MixedTrack] to implement [list.Item].
type trackItem struct {
	position int
	track    mixer.MixedTrack
	source   string
}

func (i trackItem) FilterValue() string { return i.track.Title + " " + i.track.Artist() }
func (i trackItem) Title() string       { return fmt.Sprintf("%2d. %s", i.position, i.track.Title) }
func (i trackItem) Description() string {
	parts := []string{i.track.Artist()}
	if i.track.Album != "" {
		parts = append(parts, i.track.Album)
	}
	parts = append(parts,
		shared.FormatDuration(i.track.DurationMS),
		fmt.Sprintf("pop %d", i.track.Popularity),
		"from "+i.source,
	)
	return strings.Join(parts, " • ")
}

// trackItems converts a mix into list items, labelling each with its source name.
func trackItems(res *mixer.Result) []list.Item {
	names := make(map[string]string, len(res.Distribution))
	for _, s := range res.Distribution {
		names[s.ID] = s.Name
		if s.Name == "" {
			names[s.ID] = s.ID
		}
	}

	items := make([]list.Item, len(res.Tracks))
	for i, t := range res.Tracks {
		source := names[t.SourcePlaylist]
		if source == "" {
			source = t.SourcePlaylist
		}
		items[i] = trackItem{position: i + 1, track: t, source: source}
	}
	return items
}
