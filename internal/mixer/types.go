package mixer

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
)

// WeightType selects how a source's share of the mix is measured.
type WeightType string

const (
	WeightFrequency WeightType = "frequency" // share by track count
	WeightTime      WeightType = "time"      // share by accumulated duration
)

// ParseWeightType parses a weight type, defaulting the empty string to [WeightFrequency].
func ParseWeightType(s string) (WeightType, error) {
	switch WeightType(strings.ToLower(strings.TrimSpace(s))) {
	case "", WeightFrequency:
		return WeightFrequency, nil
	case WeightTime:
		return WeightTime, nil
	default:
		return "", fmt.Errorf("unknown weight type %q", s)
	}
}

// Strategy is the popularity curve applied across the length of the mix.
type Strategy string

const (
	StrategyMixed       Strategy = "mixed"
	StrategyFrontLoaded Strategy = "front-loaded"
	StrategyMidPeak     Strategy = "mid-peak"
	StrategyCrescendo   Strategy = "crescendo"
)

// Strategies lists every supported strategy in display order.
var Strategies = []Strategy{StrategyMixed, StrategyFrontLoaded, StrategyMidPeak, StrategyCrescendo}

// ParseStrategy parses a strategy name, defaulting the empty string to [StrategyMixed].
func ParseStrategy(s string) (Strategy, error) {
	name := Strategy(strings.ToLower(strings.TrimSpace(s)))
	if name == "" {
		return StrategyMixed, nil
	}
	for _, known := range Strategies {
		if name == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown popularity strategy %q", s)
}

// Mode is the termination model of a mix.
type Mode int

const (
	ModeCount Mode = iota // stop after TotalSongs tracks
	ModeTime              // stop once TargetDuration is reached
	ModeUseAll            // use as much of every source as the ratios allow
)

func (m Mode) String() string {
	switch m {
	case ModeCount:
		return "count"
	case ModeTime:
		return "time"
	case ModeUseAll:
		return "use_all"
	default:
		return ""
	}
}

// Source is one input playlist participating in a mix.
type Source struct {
	ID     string
	Name   string
	Tracks []models.Track
}

// RatioConfig controls how a single source is drawn from.
type RatioConfig struct {
	Min        int        // floor of tracks per burst
	Max        int        // ceiling of tracks per burst
	Weight     float64    // relative share, sources with Weight <= 0 are disabled
	WeightType WeightType // frequency or time
}

// normalized returns a copy with burst bounds and weight type filled in.
func (c RatioConfig) normalized() RatioConfig {
	if c.Min < 1 {
		c.Min = 1
	}
	if c.Max < c.Min {
		c.Max = c.Min
	}
	if wt, err := ParseWeightType(string(c.WeightType)); err == nil {
		c.WeightType = wt
	}
	return c
}

// Options is the mix options record.
type Options struct {
	TotalSongs                int
	TargetDuration            time.Duration
	UseTimeLimit              bool
	UseAllSongs               bool
	Strategy                  Strategy
	RecencyBoost              bool
	ShuffleWithinGroups       bool
	ContinueWhenPlaylistEmpty bool
	Seed                      uint64 // shuffle seed, 0 picks a random seed
}

// Mode reports the termination model selected by the options.
// UseAllSongs takes precedence over UseTimeLimit.
func (o Options) Mode() Mode {
	switch {
	case o.UseAllSongs:
		return ModeUseAll
	case o.UseTimeLimit:
		return ModeTime
	default:
		return ModeCount
	}
}

// Input bundles everything a mix invocation consumes.
type Input struct {
	Sources []Source
	Ratios  map[string]RatioConfig
	Options *Options
}

// ScoredTrack is a track annotated with its popularity score for one invocation.
type ScoredTrack struct {
	models.Track
	BasePopularity     int
	RecencyBonus       float64
	AdjustedPopularity float64
	ReleaseYear        int
}

// MixedTrack is a track placed in the output, tagged with the source that supplied it.
type MixedTrack struct {
	models.Track
	SourcePlaylist string `json:"source_playlist"`
}

// SourceStats summarizes one source's contribution to a finished mix.
type SourceStats struct {
	ID          string  `json:"id"`
	Name        string  `json:"name,omitempty"`
	Count       int     `json:"count"`
	DurationMS  int     `json:"duration_ms"`
	TargetRatio float64 `json:"target_ratio"`
	ActualRatio float64 `json:"actual_ratio"`
	Exhausted   bool    `json:"exhausted"`
}

// Result is the finished mix and its metadata.
type Result struct {
	Tracks             []MixedTrack  `json:"tracks"`
	ExhaustedPlaylists []string      `json:"exhausted_playlists"`
	StoppedEarly       bool          `json:"stopped_early"`
	Mode               string        `json:"mode"`
	Strategy           Strategy      `json:"strategy"`
	EstimatedTotal     int           `json:"estimated_total"`
	Iterations         int           `json:"iterations"`
	HitIterationCap    bool          `json:"hit_iteration_cap"`
	TotalDurationMS    int           `json:"total_duration_ms"`
	Distribution       []SourceStats `json:"distribution"`
}

// Exhausted reports whether the given source ran out of eligible tracks.
func (r *Result) Exhausted(sourceID string) bool {
	for _, id := range r.ExhaustedPlaylists {
		if id == sourceID {
			return true
		}
	}
	return false
}

// CountBySource returns the number of output tracks each source supplied.
func (r *Result) CountBySource() map[string]int {
	counts := make(map[string]int, len(r.Distribution))
	for _, t := range r.Tracks {
		counts[t.SourcePlaylist]++
	}
	return counts
}

// URIs returns the catalog URIs of the output in order.
func (r *Result) URIs() []string {
	uris := make([]string, len(r.Tracks))
	for i, t := range r.Tracks {
		uris[i] = t.URI
	}
	return uris
}
